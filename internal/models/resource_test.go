package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestResourceUnmarshalAcceptsBothIDKeys(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"mongo id", `{"_id":"abc","name":"a.pdf"}`, "abc"},
		{"plain id", `{"id":"def","name":"a.pdf"}`, "def"},
		{"both prefers _id", `{"_id":"abc","id":"def"}`, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Resource
			if err := json.Unmarshal([]byte(tt.data), &r); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if r.ID != tt.want {
				t.Errorf("ID = %q, want %q", r.ID, tt.want)
			}
		})
	}
}

func TestResourceUnmarshalFields(t *testing.T) {
	data := `{"_id":"x1","name":"a.pdf","parentId":"f1","isFolder":false,"createdAt":"2024-03-01T10:00:00Z"}`

	var r Resource
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.ParentID == nil || *r.ParentID != "f1" {
		t.Errorf("ParentID = %v, want f1", r.ParentID)
	}
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if !r.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", r.CreatedAt, want)
	}
}

func TestResourceKind(t *testing.T) {
	tests := []struct {
		res  Resource
		want string
	}{
		{Resource{Name: "report.pdf"}, "PDF"},
		{Resource{Name: "archive.tar.gz"}, "GZ"},
		{Resource{Name: "Makefile"}, "MAKEFILE"},
		{Resource{Name: "Docs", IsFolder: true}, "FOLDER"},
	}

	for _, tt := range tests {
		if got := tt.res.Kind(); got != tt.want {
			t.Errorf("Kind(%q) = %q, want %q", tt.res.Name, got, tt.want)
		}
	}
}

func TestResourceInFolder(t *testing.T) {
	root := Resource{ID: "a"}
	child := Resource{ID: "b", ParentID: StringPtr("f1")}

	if !root.InFolder(nil) {
		t.Error("root resource should be in root")
	}
	if root.InFolder(StringPtr("f1")) {
		t.Error("root resource should not be in f1")
	}
	if !child.InFolder(StringPtr("f1")) {
		t.Error("child should be in f1")
	}
	if child.InFolder(nil) {
		t.Error("child should not be in root")
	}
}
