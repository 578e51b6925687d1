package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/clouddrive/drive/internal/constants"
	"github.com/clouddrive/drive/internal/dialog"
	"github.com/clouddrive/drive/internal/events"
	"github.com/clouddrive/drive/internal/logging"
	"github.com/clouddrive/drive/internal/metrics"
	"github.com/clouddrive/drive/internal/models"
	"github.com/clouddrive/drive/internal/state"
	"github.com/clouddrive/drive/internal/tour"
)

// Notification texts
const (
	msgLoadFilesFailed   = "Unable to load files"
	msgLoadFoldersFailed = "Unable to load folders"
	msgFolderCreated     = "Folder created"
	msgCreateFailed      = "Unable to create folder"
	msgRenamed           = "Renamed"
	msgRenameFailed      = "Rename failed"
	msgDeleted           = "Deleted"
	msgDeleteFailed      = "Delete failed"
	msgUploadFailed      = "Upload failed"
	msgOpenFailed        = "Unable to open file"
	msgDownloadFailed    = "Download failed"
	msgBusy              = "Another change is still in progress"
	msgFolderNotFile     = "Folders cannot be opened or downloaded"
	msgNameMismatch      = "Name does not match, nothing was deleted"
	msgUnknownItem       = "That item is not in the current folder"
)

// Options configures a Controller. Client is required.
type Options struct {
	Client   ResourceClient
	Viewer   Viewer
	Prompter dialog.Prompter
	Tour     *tour.Tour
	EventBus *events.EventBus
	Metrics  *metrics.Metrics
	Logger   *logging.Logger

	// MutationTimeout bounds a mutation together with its follow-up refresh.
	MutationTimeout time.Duration
	// Collation is the language whose rules order names in the by-name view.
	Collation language.Tag
	// ConfirmDeleteByName makes RequestDelete require typing the item's name.
	ConfirmDeleteByName bool
}

// Controller is the resource browser state machine.
//
// Methods block the calling goroutine for the remote calls they await and
// may be called from any goroutine. The controller mutex is never held across
// a remote call.
type Controller struct {
	client          ResourceClient
	viewer          Viewer
	prompter        dialog.Prompter
	tour            *tour.Tour
	eventBus        *events.EventBus
	metrics         *metrics.Metrics
	logger          *logging.Logger
	mutationTimeout time.Duration
	collation       language.Tag
	confirmByName   bool

	listing   *state.Listing
	folders   *state.FolderIndex
	foldersSF singleflight.Group

	// mutationSlot admits one mutation at a time; it is held until the
	// follow-up refresh has been applied.
	mutationSlot sync.Mutex

	mu         sync.Mutex
	mounted    bool
	lifetime   context.Context
	cancel     context.CancelFunc
	mountSeq   uint64
	navSeq     uint64 // bumped by every navigation
	fetchSeq   uint64 // last listing fetch issued
	appliedSeq uint64 // last listing fetch applied
	// foldersGen is bumped after an acknowledged mutation so the follow-up
	// refresh starts its own flight instead of joining an older one.
	foldersGen        uint64
	foldersAppliedGen uint64
	loading    bool
	mutating   bool
	phase      Phase
	bctx       Context
}

// New creates an unmounted controller.
func New(opts Options) *Controller {
	if opts.EventBus == nil {
		opts.EventBus = events.NewEventBus(0)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.MutationTimeout <= 0 {
		opts.MutationTimeout = constants.DefaultMutationTimeout
	}
	if opts.Collation == language.Und {
		opts.Collation = language.English
	}

	return &Controller{
		client:          opts.Client,
		viewer:          opts.Viewer,
		prompter:        opts.Prompter,
		tour:            opts.Tour,
		eventBus:        opts.EventBus,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		mutationTimeout: opts.MutationTimeout,
		collation:       opts.Collation,
		confirmByName:   opts.ConfirmDeleteByName,
		listing:         state.NewListing(opts.EventBus),
		folders:         state.NewFolderIndex(opts.EventBus),
		phase:           PhaseIdle,
		bctx:            rootContext(SortByDate),
	}
}

func rootContext(sort SortKey) Context {
	return Context{FolderName: constants.HomeFolderName, Sort: sort}
}

// EventBus returns the bus notifications and state changes are published on.
func (c *Controller) EventBus() *events.EventBus {
	return c.eventBus
}

// ---- state machine bookkeeping ----

// settleLocked recomputes the phase; the caller publishes the returned
// transition after unlocking.
func (c *Controller) settleLocked() (old, next Phase, changed bool) {
	next = PhaseReady
	switch {
	case !c.mounted:
		next = PhaseIdle
	case c.mutating:
		next = PhaseMutating
	case c.loading:
		next = PhaseLoading
	}
	old = c.phase
	c.phase = next
	return old, next, old != next
}

func (c *Controller) publishPhase(old, next Phase, changed bool) {
	if changed {
		c.eventBus.PublishPhase(old.String(), next.String())
	}
}

// Phase returns the current state machine position.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Context returns a copy of the navigation context.
func (c *Controller) Context() Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contextLocked()
}

func (c *Controller) contextLocked() Context {
	out := c.bctx
	if c.bctx.FolderID != nil {
		id := *c.bctx.FolderID
		out.FolderID = &id
	}
	return out
}

// scoped derives a context for a remote call that ends when either ctx or
// the mount lifetime ends.
func scoped(ctx, lifetime context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(lifetime, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

func (c *Controller) notify(level events.Level, op, message string, err error) {
	c.eventBus.Notify(level, op, message, err)
}

func remoteErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRemoteFailure, op, err)
}

// ---- lifecycle ----

// Mount resets the context to the root and loads the listing and the folder
// index concurrently. ctx bounds the whole mount lifetime; Unmount ends it
// early. A failed fetch leaves the controller Ready with whatever it had.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.lifetime, c.cancel = context.WithCancel(ctx)
	c.mounted = true
	c.mountSeq++
	c.navSeq++
	c.bctx = rootContext(SortByDate)
	c.loading = true
	old, next, changed := c.settleLocked()
	c.mu.Unlock()
	c.publishPhase(old, next, changed)

	c.logger.Debug().Msg("Browser mounted")

	if c.tour != nil {
		c.tour.Mount()
	}

	var g errgroup.Group
	g.Go(func() error { return c.load(ctx) })
	g.Go(func() error { return c.refreshFolders(ctx) })
	return g.Wait()
}

// Unmount cancels every pending remote call. No state changes after it returns.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	c.cancel()
	c.navSeq++
	c.loading = false
	old, next, changed := c.settleLocked()
	c.mu.Unlock()
	c.publishPhase(old, next, changed)

	c.logger.Debug().Msg("Browser unmounted")
}

// Mounted reports whether the controller is mounted.
func (c *Controller) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// ---- navigation ----

// SelectFolder navigates into folder id and loads its listing.
// The folder index is not touched.
func (c *Controller) SelectFolder(ctx context.Context, id, name string) error {
	if id == "" {
		return fmt.Errorf("%w: empty folder id", ErrValidation)
	}
	return c.navigate(ctx, &id, name)
}

// GoHome navigates to the store root.
func (c *Controller) GoHome(ctx context.Context) error {
	return c.navigate(ctx, nil, constants.HomeFolderName)
}

func (c *Controller) navigate(ctx context.Context, id *string, name string) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrNotMounted
	}
	c.bctx.FolderID = id
	c.bctx.FolderName = name
	c.navSeq++
	c.mu.Unlock()

	return c.load(ctx)
}

// Refresh re-fetches the listing and the folder index.
func (c *Controller) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.load(ctx) })
	g.Go(func() error { return c.refreshFolders(ctx) })
	return g.Wait()
}

// SetQuery changes the search filter. No fetch is issued.
func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	c.bctx.Query = query
	c.mu.Unlock()
}

// SetSort changes the view ordering. No fetch is issued.
func (c *Controller) SetSort(key SortKey) {
	c.mu.Lock()
	c.bctx.Sort = key
	c.mu.Unlock()
}

// load is the Loading transition: fetch the listing of the current folder and
// apply it unless a navigation or a newer fetch superseded it meanwhile.
func (c *Controller) load(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrNotMounted
	}
	c.fetchSeq++
	seq := c.fetchSeq
	nav := c.navSeq
	folder := c.contextLocked().FolderID
	lifetime := c.lifetime
	c.loading = true
	old, next, changed := c.settleLocked()
	c.mu.Unlock()
	c.publishPhase(old, next, changed)

	log := c.logger.Debug().Str("folder_id", models.Deref(folder)).Uint64("fetch_seq", seq)
	log.Msg("Loading listing")

	callCtx, cancel := scoped(ctx, lifetime)
	start := time.Now()
	items, err := c.client.ListFiles(callCtx, folder)
	cancel()
	c.metrics.RecordFetch("files", time.Since(start), err == nil)

	c.mu.Lock()
	if !c.mounted || lifetime.Err() != nil {
		c.mu.Unlock()
		return context.Canceled
	}
	if seq == c.fetchSeq {
		c.loading = false
	}
	if err != nil && ctx.Err() != nil {
		// The caller gave up; the cached listing stays as it was.
		old, next, changed = c.settleLocked()
		c.mu.Unlock()
		c.publishPhase(old, next, changed)
		return ctx.Err()
	}
	stale := nav != c.navSeq || seq < c.appliedSeq
	if !stale && err == nil {
		c.appliedSeq = seq
		c.listing.Replace(folder, items)
	}
	if !stale && err != nil {
		c.listing.SetError(folder, err)
	}
	old, next, changed = c.settleLocked()
	c.mu.Unlock()
	c.publishPhase(old, next, changed)

	if stale {
		c.metrics.RecordStaleResponse("files")
		c.logger.Debug().Str("folder_id", models.Deref(folder)).Uint64("fetch_seq", seq).Msg("Discarded stale listing")
		return nil
	}
	if err != nil {
		c.logger.Error().Err(err).Str("folder_id", models.Deref(folder)).Msg("Listing fetch failed")
		c.notify(events.LevelError, "list", msgLoadFilesFailed, err)
		return remoteErr("list files", err)
	}
	return nil
}

// refreshFolders fetches the flat folder index. Concurrent refreshes within
// one mount share a single request.
func (c *Controller) refreshFolders(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrNotMounted
	}
	mountSeq := c.mountSeq
	gen := c.foldersGen
	lifetime := c.lifetime
	c.mu.Unlock()

	key := "folders-" + strconv.FormatUint(mountSeq, 10) + "-" + strconv.FormatUint(gen, 10)
	ch := c.foldersSF.DoChan(key, func() (interface{}, error) {
		start := time.Now()
		folders, err := c.client.ListFolders(lifetime)
		c.metrics.RecordFetch("folders", time.Since(start), err == nil)
		return folders, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	if !c.mounted || c.mountSeq != mountSeq {
		c.mu.Unlock()
		c.metrics.RecordStaleResponse("folders")
		return context.Canceled
	}
	if gen < c.foldersAppliedGen {
		c.mu.Unlock()
		c.metrics.RecordStaleResponse("folders")
		c.logger.Debug().Uint64("folders_gen", gen).Msg("Discarded stale folder index")
		return nil
	}
	if res.Err == nil {
		c.foldersAppliedGen = gen
		c.folders.Replace(res.Val.([]models.Resource))
	} else {
		c.folders.SetError(res.Err)
	}
	c.mu.Unlock()

	if res.Err != nil {
		c.logger.Error().Err(res.Err).Msg("Folder index fetch failed")
		c.notify(events.LevelError, "folders", msgLoadFoldersFailed, res.Err)
		return remoteErr("list folders", res.Err)
	}
	return nil
}

// ---- derived view ----

// View returns the filtered and sorted listing.
func (c *Controller) View() []models.Resource {
	items := c.listing.Items()
	bctx := c.Context()
	return Project(items, bctx.Query, bctx.Sort, c.collation)
}

// Recent returns the newest-first non-folder entries of the current view.
func (c *Controller) Recent() []models.Resource {
	return Recent(c.View())
}

// Folders returns the cached folder index.
func (c *Controller) Folders() []models.Resource {
	return c.folders.Folders()
}

// Snapshot returns a consistent copy of the controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	phase := c.phase
	bctx := c.contextLocked()
	listing := c.listing.Items()
	listingFolder := c.listing.FolderID()
	c.mu.Unlock()

	view := Project(listing, bctx.Query, bctx.Sort, c.collation)
	return Snapshot{
		Phase:           phase,
		Context:         bctx,
		Listing:         listing,
		ListingFolderID: listingFolder,
		Folders:         c.folders.Folders(),
		View:            view,
		Recent:          Recent(view),
		TakenAt:         time.Now(),
	}
}

// lookup finds id in the listing, then in the folder index.
func (c *Controller) lookup(id string) (models.Resource, bool) {
	if r, ok := c.listing.FindByID(id); ok {
		return r, true
	}
	return c.folders.FindByID(id)
}

// ---- mutations ----

type refreshTarget int

const (
	refreshListing refreshTarget = iota
	refreshFolderIndex
)

type mutation struct {
	op       string
	success  string
	failure  string
	refresh  refreshTarget
	call     func(ctx context.Context) error
	logField string
}

// mutate runs m under the mutation slot: Ready -> Mutating -> remote call ->
// refresh -> Ready. A failure leaves both caches untouched.
func (c *Controller) mutate(ctx context.Context, m mutation) error {
	if !c.mutationSlot.TryLock() {
		c.metrics.RecordMutationRejected()
		c.logger.Warn().Str("op", m.op).Msg("Mutation rejected, another is pending")
		c.notify(events.LevelError, m.op, msgBusy, ErrMutationInProgress)
		return ErrMutationInProgress
	}
	defer c.mutationSlot.Unlock()

	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrNotMounted
	}
	lifetime := c.lifetime
	c.mutating = true
	old, next, changed := c.settleLocked()
	c.mu.Unlock()
	c.publishPhase(old, next, changed)

	defer func() {
		c.mu.Lock()
		c.mutating = false
		old, next, changed := c.settleLocked()
		c.mu.Unlock()
		c.publishPhase(old, next, changed)
	}()

	callCtx, cancel := scoped(ctx, lifetime)
	defer cancel()
	callCtx, cancelTimeout := context.WithTimeout(callCtx, c.mutationTimeout)
	defer cancelTimeout()

	err := m.call(callCtx)
	c.metrics.RecordMutation(m.op, err == nil)
	if err != nil {
		if lifetime.Err() != nil {
			return context.Canceled
		}
		if ctx.Err() != nil {
			c.logger.Debug().Str("op", m.op).Msg("Mutation abandoned by caller")
			return ctx.Err()
		}
		c.logger.Error().Err(err).Str("op", m.op).Str("target", m.logField).Msg("Mutation failed")
		c.notify(events.LevelError, m.op, m.failure, err)
		return remoteErr(m.op, err)
	}

	c.logger.Info().Str("op", m.op).Str("target", m.logField).Msg("Mutation acknowledged")
	c.notify(events.LevelSuccess, m.op, m.success, nil)

	// Refresh failures are reported by the fetch itself; the mutation stands.
	switch m.refresh {
	case refreshFolderIndex:
		c.mu.Lock()
		c.foldersGen++
		c.mu.Unlock()
		_ = c.refreshFolders(callCtx)
	default:
		_ = c.load(callCtx)
	}
	return nil
}

// CreateFolder creates a folder in the current folder and refreshes the
// folder index. An empty name cancels without a call.
func (c *Controller) CreateFolder(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	parent := c.Context().FolderID
	return c.mutate(ctx, mutation{
		op:       "create-folder",
		success:  msgFolderCreated,
		failure:  msgCreateFailed,
		refresh:  refreshFolderIndex,
		logField: name,
		call: func(ctx context.Context) error {
			return c.client.CreateFolder(ctx, name, parent)
		},
	})
}

// Rename renames id and refreshes the listing. An empty name cancels without a call.
func (c *Controller) Rename(ctx context.Context, id, newName string) error {
	if newName == "" {
		return nil
	}
	return c.mutate(ctx, mutation{
		op:       "rename",
		success:  msgRenamed,
		failure:  msgRenameFailed,
		refresh:  refreshListing,
		logField: id,
		call: func(ctx context.Context) error {
			return c.client.Rename(ctx, id, newName)
		},
	})
}

// Delete removes id and refreshes the listing.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrValidation)
	}
	return c.mutate(ctx, mutation{
		op:       "delete",
		success:  msgDeleted,
		failure:  msgDeleteFailed,
		refresh:  refreshListing,
		logField: id,
		call: func(ctx context.Context) error {
			return c.client.Delete(ctx, id)
		},
	})
}

// Upload sends r as filename into the current folder and refreshes the listing.
func (c *Controller) Upload(ctx context.Context, r io.Reader, filename string) error {
	if filename == "" {
		c.notify(events.LevelError, "upload", msgUploadFailed, ErrValidation)
		return fmt.Errorf("%w: empty file name", ErrValidation)
	}
	bctx := c.Context()
	return c.mutate(ctx, mutation{
		op:       "upload",
		success:  "Uploaded to " + bctx.FolderName,
		failure:  msgUploadFailed,
		refresh:  refreshListing,
		logField: filename,
		call: func(ctx context.Context) error {
			return c.client.Upload(ctx, r, filename, bctx.FolderID)
		},
	})
}

// ---- dialog-driven mutations ----

func (c *Controller) prompt(ctx context.Context, req dialog.Request) (dialog.Result, error) {
	if c.prompter == nil {
		return dialog.Cancelled(), fmt.Errorf("%w: no dialog available", ErrValidation)
	}
	return c.prompter.Prompt(ctx, req)
}

// RequestCreateFolder asks for a name, then creates the folder.
// Cancelling or answering with an empty name issues no call.
func (c *Controller) RequestCreateFolder(ctx context.Context) error {
	res, err := c.prompt(ctx, dialog.Request{Kind: dialog.KindCreateFolder, Title: "Folder name"})
	if err != nil {
		return err
	}
	if !res.IsConfirmed() {
		return nil
	}
	return c.CreateFolder(ctx, res.Value())
}

// RequestRename asks for a new name prefilled with the current one.
func (c *Controller) RequestRename(ctx context.Context, id string) error {
	current, ok := c.lookup(id)
	if !ok {
		c.notify(events.LevelError, "rename", msgUnknownItem, ErrValidation)
		return fmt.Errorf("%w: unknown item %s", ErrValidation, id)
	}
	res, err := c.prompt(ctx, dialog.Request{Kind: dialog.KindRename, Title: "Rename", Default: current.Name})
	if err != nil {
		return err
	}
	if !res.IsConfirmed() {
		return nil
	}
	return c.Rename(ctx, id, res.Value())
}

// RequestDelete asks for confirmation before deleting. With strict
// confirmation the user must type the item's name; a mismatch is a
// validation failure and no call is issued.
func (c *Controller) RequestDelete(ctx context.Context, id string) error {
	target, ok := c.lookup(id)
	if !ok {
		c.notify(events.LevelError, "delete", msgUnknownItem, ErrValidation)
		return fmt.Errorf("%w: unknown item %s", ErrValidation, id)
	}
	res, err := c.prompt(ctx, dialog.Request{
		Kind:        dialog.KindConfirmDelete,
		Title:       fmt.Sprintf("Delete %q?", target.Name),
		Default:     target.Name,
		RequireName: c.confirmByName,
	})
	if err != nil {
		return err
	}
	if !res.IsConfirmed() {
		return nil
	}
	if c.confirmByName && res.Value() != target.Name {
		c.notify(events.LevelError, "delete", msgNameMismatch, ErrValidation)
		return fmt.Errorf("%w: confirmation %q does not match %q", ErrValidation, res.Value(), target.Name)
	}
	return c.Delete(ctx, id)
}

// ---- open / download ----

// Open resolves a fresh access URL for id and shows it in a new viewing context.
func (c *Controller) Open(ctx context.Context, id string) (string, error) {
	return c.access(ctx, id, "open", msgOpenFailed, func(ctx context.Context, url string) error {
		if c.viewer == nil {
			return nil
		}
		return c.viewer.OpenNew(ctx, url)
	})
}

// Download resolves a fresh access URL for id and redirects the current
// viewing context to it.
func (c *Controller) Download(ctx context.Context, id string) (string, error) {
	return c.access(ctx, id, "download", msgDownloadFailed, func(ctx context.Context, url string) error {
		if c.viewer == nil {
			return nil
		}
		return c.viewer.Redirect(ctx, url)
	})
}

func (c *Controller) access(ctx context.Context, id, purpose, failure string, show func(context.Context, string) error) (string, error) {
	if r, ok := c.lookup(id); ok && r.IsFolder {
		c.notify(events.LevelError, purpose, msgFolderNotFile, ErrValidation)
		return "", fmt.Errorf("%w: %s is a folder", ErrValidation, id)
	}

	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return "", ErrNotMounted
	}
	lifetime := c.lifetime
	c.mu.Unlock()

	callCtx, cancel := scoped(ctx, lifetime)
	defer cancel()

	url, err := c.client.ResolveAccessURL(callCtx, id)
	if err == nil {
		err = show(callCtx, url)
	}
	c.metrics.RecordAccessResolve(purpose, err == nil)
	if err != nil {
		if lifetime.Err() != nil {
			return "", context.Canceled
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Error().Err(err).Str("op", purpose).Str("target", id).Msg("Access failed")
		c.notify(events.LevelError, purpose, failure, err)
		if errors.Is(err, ErrValidation) {
			return "", err
		}
		return "", remoteErr(purpose, err)
	}
	return url, nil
}
