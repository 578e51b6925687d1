// Package state provides observable caches for the resource browser.
// These containers emit events when their contents change, allowing any
// front end to subscribe and redraw.
package state

import (
	"time"

	"github.com/clouddrive/drive/internal/events"
	"github.com/clouddrive/drive/internal/models"
)

// State event types
const (
	EventListingChanged     events.EventType = "listing_changed"
	EventListingError       events.EventType = "listing_error"
	EventFolderIndexChanged events.EventType = "folder_index_changed"
	EventFolderIndexError   events.EventType = "folder_index_error"
)

// ListingChangedEvent is published when the file listing is replaced.
type ListingChangedEvent struct {
	events.BaseEvent
	FolderID *string // folder the listing was fetched for, nil = root
	Items    []models.Resource
}

// ListingErrorEvent is published when a listing fetch fails. The previous
// listing is kept.
type ListingErrorEvent struct {
	events.BaseEvent
	FolderID *string
	Error    error
}

// FolderIndexChangedEvent is published when the folder index is replaced.
type FolderIndexChangedEvent struct {
	events.BaseEvent
	Folders []models.Resource
}

// FolderIndexErrorEvent is published when a folder index fetch fails.
type FolderIndexErrorEvent struct {
	events.BaseEvent
	Error error
}

// NewListingChangedEvent creates a new ListingChangedEvent.
func NewListingChangedEvent(folderID *string, items []models.Resource) *ListingChangedEvent {
	return &ListingChangedEvent{
		BaseEvent: events.BaseEvent{
			EventType: EventListingChanged,
			Time:      time.Now(),
		},
		FolderID: folderID,
		Items:    items,
	}
}

// NewListingErrorEvent creates a new ListingErrorEvent.
func NewListingErrorEvent(folderID *string, err error) *ListingErrorEvent {
	return &ListingErrorEvent{
		BaseEvent: events.BaseEvent{
			EventType: EventListingError,
			Time:      time.Now(),
		},
		FolderID: folderID,
		Error:    err,
	}
}

// NewFolderIndexChangedEvent creates a new FolderIndexChangedEvent.
func NewFolderIndexChangedEvent(folders []models.Resource) *FolderIndexChangedEvent {
	return &FolderIndexChangedEvent{
		BaseEvent: events.BaseEvent{
			EventType: EventFolderIndexChanged,
			Time:      time.Now(),
		},
		Folders: folders,
	}
}

// NewFolderIndexErrorEvent creates a new FolderIndexErrorEvent.
func NewFolderIndexErrorEvent(err error) *FolderIndexErrorEvent {
	return &FolderIndexErrorEvent{
		BaseEvent: events.BaseEvent{
			EventType: EventFolderIndexError,
			Time:      time.Now(),
		},
		Error: err,
	}
}
