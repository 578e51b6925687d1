// Package models holds the wire types exchanged with the Cloud Drive API.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Resource is a file or folder record returned by the API.
// Folders never carry content; only non-folders can be opened or downloaded.
type Resource struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId"`
	IsFolder  bool      `json:"isFolder"`
	CreatedAt time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts both "_id" and "id" for the identifier.
func (r *Resource) UnmarshalJSON(data []byte) error {
	type plain Resource
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Resource(aux.plain)
	if r.ID == "" {
		r.ID = aux.AltID
	}
	return nil
}

// Kind returns the upper-cased extension used as the file-type badge.
// A name without a dot yields the whole name.
func (r Resource) Kind() string {
	if r.IsFolder {
		return "FOLDER"
	}
	idx := strings.LastIndex(r.Name, ".")
	return strings.ToUpper(r.Name[idx+1:])
}

// InFolder reports whether r is an immediate child of parentID (nil = root).
func (r Resource) InFolder(parentID *string) bool {
	if parentID == nil || r.ParentID == nil {
		return parentID == nil && r.ParentID == nil
	}
	return *parentID == *r.ParentID
}

// AccessLocator is the response of GET /files/open/{id}: a time-bounded URL.
type AccessLocator struct {
	URL string `json:"url"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the response of POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	Msg   string `json:"msg,omitempty"`
}

// CreateFolderRequest is the body of POST /files/folder.
type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

// RenameRequest is the body of PUT /files/{id}.
type RenameRequest struct {
	Name string `json:"name"`
}

// ErrorResponse is the error envelope the API uses ({"msg": "..."}).
type ErrorResponse struct {
	Msg string `json:"msg"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
