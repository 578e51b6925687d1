package state

import (
	"sync"

	"github.com/clouddrive/drive/internal/events"
	"github.com/clouddrive/drive/internal/models"
)

func copyResources(items []models.Resource) []models.Resource {
	out := make([]models.Resource, len(items))
	copy(out, items)
	return out
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Listing is the cached file listing: the immediate children of one folder,
// tagged with the folder it was fetched for. Order is the server's; sorting
// happens in the derived view. Thread-safe.
type Listing struct {
	eventBus *events.EventBus

	items     []models.Resource
	folderID  *string
	loaded    bool
	lastError error

	mu sync.RWMutex
}

// NewListing creates an empty listing.
func NewListing(eventBus *events.EventBus) *Listing {
	return &Listing{
		eventBus: eventBus,
		items:    make([]models.Resource, 0),
	}
}

// Items returns a copy of the cached items.
func (l *Listing) Items() []models.Resource {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyResources(l.items)
}

// FolderID returns the folder the cached items belong to (nil = root).
func (l *Listing) FolderID() *string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyID(l.folderID)
}

// Loaded reports whether any fetch has been applied.
func (l *Listing) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Replace installs a fetched listing and publishes a change event.
func (l *Listing) Replace(folderID *string, items []models.Resource) {
	l.mu.Lock()
	l.items = copyResources(items)
	l.folderID = copyID(folderID)
	l.loaded = true
	l.lastError = nil
	itemsCopy := copyResources(l.items)
	l.mu.Unlock()

	if l.eventBus != nil {
		l.eventBus.Publish(NewListingChangedEvent(copyID(folderID), itemsCopy))
	}
}

// SetError records a failed fetch for folderID. Cached items are kept.
func (l *Listing) SetError(folderID *string, err error) {
	l.mu.Lock()
	l.lastError = err
	l.mu.Unlock()

	if l.eventBus != nil && err != nil {
		l.eventBus.Publish(NewListingErrorEvent(copyID(folderID), err))
	}
}

// Error returns the last fetch error, cleared by the next Replace.
func (l *Listing) Error() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastError
}

// FindByID finds an item by ID.
func (l *Listing) FindByID(id string) (models.Resource, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, item := range l.items {
		if item.ID == id {
			return item, true
		}
	}
	return models.Resource{}, false
}

// Count returns the number of items.
func (l *Listing) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// FolderIndex is the flat, unscoped list of every folder of the account.
// It is fetched independently of the Listing and may disagree with it.
type FolderIndex struct {
	eventBus *events.EventBus

	folders   []models.Resource
	loaded    bool
	lastError error

	mu sync.RWMutex
}

// NewFolderIndex creates an empty folder index.
func NewFolderIndex(eventBus *events.EventBus) *FolderIndex {
	return &FolderIndex{
		eventBus: eventBus,
		folders:  make([]models.Resource, 0),
	}
}

// Folders returns a copy of the cached folders.
func (f *FolderIndex) Folders() []models.Resource {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return copyResources(f.folders)
}

// Loaded reports whether any fetch has been applied.
func (f *FolderIndex) Loaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loaded
}

// Replace installs a fetched folder index and publishes a change event.
func (f *FolderIndex) Replace(folders []models.Resource) {
	f.mu.Lock()
	f.folders = copyResources(folders)
	f.loaded = true
	f.lastError = nil
	foldersCopy := copyResources(f.folders)
	f.mu.Unlock()

	if f.eventBus != nil {
		f.eventBus.Publish(NewFolderIndexChangedEvent(foldersCopy))
	}
}

// SetError records a failed fetch. Cached folders are kept.
func (f *FolderIndex) SetError(err error) {
	f.mu.Lock()
	f.lastError = err
	f.mu.Unlock()

	if f.eventBus != nil && err != nil {
		f.eventBus.Publish(NewFolderIndexErrorEvent(err))
	}
}

// Error returns the last fetch error.
func (f *FolderIndex) Error() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastError
}

// FindByID finds a folder by ID.
func (f *FolderIndex) FindByID(id string) (models.Resource, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, folder := range f.folders {
		if folder.ID == id {
			return folder, true
		}
	}
	return models.Resource{}, false
}

// Count returns the number of folders.
func (f *FolderIndex) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.folders)
}
