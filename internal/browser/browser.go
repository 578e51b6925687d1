// Package browser implements the resource browser: navigation over the remote
// store, the derived (filtered and sorted) view, mutations and open/download.
package browser

import (
	"context"
	"io"
	"time"

	"github.com/clouddrive/drive/internal/models"
)

// ResourceClient is the remote store as the browser sees it.
type ResourceClient interface {
	ListFiles(ctx context.Context, parentID *string) ([]models.Resource, error)
	ListFolders(ctx context.Context) ([]models.Resource, error)
	CreateFolder(ctx context.Context, name string, parentID *string) error
	Rename(ctx context.Context, id, newName string) error
	Delete(ctx context.Context, id string) error
	Upload(ctx context.Context, r io.Reader, filename string, parentID *string) error
	ResolveAccessURL(ctx context.Context, id string) (string, error)
}

// Viewer opens access URLs.
type Viewer interface {
	// OpenNew shows url in a new viewing context.
	OpenNew(ctx context.Context, url string) error
	// Redirect sends the current viewing context to url (a download).
	Redirect(ctx context.Context, url string) error
}

// Phase is the controller's state machine position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseMutating
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseLoading:
		return "Loading"
	case PhaseReady:
		return "Ready"
	case PhaseMutating:
		return "Mutating"
	default:
		return "Unknown"
	}
}

// Context is the per-mount navigation state. It is never persisted.
type Context struct {
	FolderID   *string // nil = root
	FolderName string
	Query      string
	Sort       SortKey
}

// AtRoot reports whether the context points at the store root.
func (c Context) AtRoot() bool {
	return c.FolderID == nil
}

// Snapshot is an immutable copy of everything a renderer needs.
type Snapshot struct {
	Phase           Phase
	Context         Context
	Listing         []models.Resource // raw cached listing, server order
	ListingFolderID *string           // folder the listing was fetched for
	Folders         []models.Resource // flat folder index
	View            []models.Resource // filtered and sorted listing
	Recent          []models.Resource
	TakenAt         time.Time
}
