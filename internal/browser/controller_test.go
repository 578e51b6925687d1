package browser

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clouddrive/drive/internal/dialog"
	"github.com/clouddrive/drive/internal/events"
	"github.com/clouddrive/drive/internal/metrics"
	"github.com/clouddrive/drive/internal/models"
	"github.com/clouddrive/drive/internal/profile"
	"github.com/clouddrive/drive/internal/tour"
)

var errBackend = errors.New("backend unavailable")

// fakeClient is an in-memory ResourceClient. Listings can be gated per
// folder so tests control the order in which responses arrive.
type fakeClient struct {
	mu      sync.Mutex
	files   map[string][]models.Resource // "" = root
	folders []models.Resource
	gates   map[string]chan struct{}
	started chan string

	// foldersGate holds the next ListFolders call until closed.
	foldersGate    chan struct{}
	foldersStarted chan struct{}

	listErr    error
	foldersErr error
	mutErr     error
	mutGate    chan struct{}
	mutStarted chan struct{}
	accessURL  string
	accessErr  error

	listCalls, folderCalls                         int
	createCalls, renameCalls, deleteCalls, uploads int
	resolved                                       []string
	uploaded                                       map[string]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		files:      map[string][]models.Resource{},
		gates:      map[string]chan struct{}{},
		started:    make(chan string, 16),

		foldersStarted: make(chan struct{}, 4),
		mutStarted: make(chan struct{}, 4),
		accessURL:  "https://cdn.example.com/signed?sig=1",
		uploaded:   map[string]string{},
	}
}

func (f *fakeClient) gate(folderID string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[folderID] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeClient) ListFiles(ctx context.Context, parentID *string) ([]models.Resource, error) {
	key := models.Deref(parentID)
	f.mu.Lock()
	f.listCalls++
	gate := f.gates[key]
	delete(f.gates, key)
	f.mu.Unlock()

	if gate != nil {
		f.started <- key
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Resource, len(f.files[key]))
	copy(out, f.files[key])
	return out, nil
}

func (f *fakeClient) gateFolders() chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.foldersGate = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeClient) ListFolders(ctx context.Context) ([]models.Resource, error) {
	f.mu.Lock()
	f.folderCalls++
	gate := f.foldersGate
	f.foldersGate = nil
	// The response reflects the server at the time the request arrived.
	out := make([]models.Resource, len(f.folders))
	copy(out, f.folders)
	f.mu.Unlock()

	if gate != nil {
		f.foldersStarted <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.foldersErr != nil {
		return nil, f.foldersErr
	}
	return out, nil
}

func (f *fakeClient) mutation(ctx context.Context) error {
	f.mu.Lock()
	gate := f.mutGate
	f.mu.Unlock()
	if gate != nil {
		f.mutStarted <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutErr
}

func (f *fakeClient) CreateFolder(ctx context.Context, name string, parentID *string) error {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	if err := f.mutation(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	f.folders = append(f.folders, models.Resource{ID: "new-" + name, Name: name, ParentID: parentID, IsFolder: true})
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Rename(ctx context.Context, id, newName string) error {
	f.mu.Lock()
	f.renameCalls++
	f.mu.Unlock()
	if err := f.mutation(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, items := range f.files {
		for i := range items {
			if items[i].ID == id {
				f.files[key][i].Name = newName
			}
		}
	}
	return nil
}

func (f *fakeClient) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deleteCalls++
	f.mu.Unlock()
	if err := f.mutation(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, items := range f.files {
		kept := items[:0]
		for _, item := range items {
			if item.ID != id {
				kept = append(kept, item)
			}
		}
		f.files[key] = kept
	}
	return nil
}

func (f *fakeClient) Upload(ctx context.Context, r io.Reader, filename string, parentID *string) error {
	f.mu.Lock()
	f.uploads++
	f.mu.Unlock()
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := f.mutation(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := models.Deref(parentID)
	f.uploaded[filename] = string(data)
	f.files[key] = append(f.files[key], models.Resource{ID: "up-" + filename, Name: filename, ParentID: parentID, CreatedAt: time.Now()})
	return nil
}

func (f *fakeClient) ResolveAccessURL(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, id)
	if f.accessErr != nil {
		return "", f.accessErr
	}
	return f.accessURL, nil
}

func (f *fakeClient) counts() (list, folders int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.folderCalls
}

type fakeViewer struct {
	mu        sync.Mutex
	opened    []string
	redirects []string
}

func (v *fakeViewer) OpenNew(_ context.Context, url string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opened = append(v.opened, url)
	return nil
}

func (v *fakeViewer) Redirect(_ context.Context, url string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.redirects = append(v.redirects, url)
	return nil
}

type harness struct {
	c       *Controller
	client  *fakeClient
	viewer  *fakeViewer
	bus     *events.EventBus
	metrics *metrics.Metrics
	notes   <-chan events.Event
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	client := newFakeClient()
	client.files[""] = []models.Resource{
		res("x1", "a.pdf", 1),
		res("x2", "notes.txt", 2),
		folder("f1", "Projects", 3),
	}
	client.files["f1"] = []models.Resource{res("p1", "plan.doc", 5)}
	client.files["f2"] = []models.Resource{res("q1", "quote.xls", 6)}
	client.folders = []models.Resource{folder("f1", "Projects", 3), folder("f2", "Quotes", 4)}

	bus := events.NewEventBus(0)
	t.Cleanup(bus.Close)
	viewer := &fakeViewer{}
	m := metrics.New()

	opts := Options{
		Client:          client,
		Viewer:          viewer,
		EventBus:        bus,
		Metrics:         m,
		MutationTimeout: 5 * time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}

	return &harness{
		c:       New(opts),
		client:  client,
		viewer:  viewer,
		bus:     bus,
		metrics: m,
		notes:   bus.Subscribe(events.EventNotification),
	}
}

func (h *harness) mount(t *testing.T) {
	t.Helper()
	require.NoError(t, h.c.Mount(context.Background()))
	h.drain()
}

// drain discards pending notifications.
func (h *harness) drain() {
	for {
		select {
		case <-h.notes:
		default:
			return
		}
	}
}

func (h *harness) nextNote(t *testing.T) *events.NotificationEvent {
	t.Helper()
	select {
	case ev := <-h.notes:
		return ev.(*events.NotificationEvent)
	case <-time.After(time.Second):
		t.Fatal("no notification published")
		return nil
	}
}

func TestMountLoadsRootAndFolders(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, PhaseIdle, h.c.Phase())

	h.mount(t)

	assert.Equal(t, PhaseReady, h.c.Phase())
	bctx := h.c.Context()
	assert.True(t, bctx.AtRoot())
	assert.Equal(t, "Home", bctx.FolderName)
	assert.Equal(t, SortByDate, bctx.Sort)
	assert.Equal(t, []string{"f1", "x2", "x1"}, ids(h.c.View()))
	assert.Equal(t, []string{"x2", "x1"}, ids(h.c.Recent()))
	assert.Len(t, h.c.Folders(), 2)
}

func TestMountShowsTourOnce(t *testing.T) {
	store := profile.NewMemory()
	var tr *tour.Tour
	h := newHarness(t, func(o *Options) {
		tr = tour.New(store, o.EventBus, nil)
		o.Tour = tr
	})
	h.mount(t)

	step, visible := tr.State()
	assert.Equal(t, 0, step)
	assert.True(t, visible)
}

func TestMountReportsFetchFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.client.listErr = errBackend

	err := h.c.Mount(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteFailure)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, PhaseReady, h.c.Phase())
	assert.Empty(t, h.c.View())

	note := h.nextNote(t)
	assert.Equal(t, events.LevelError, note.Level)
	assert.Equal(t, "Unable to load files", note.Message)
}

func TestFailedNavigationKeepsPreviousListing(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	h.client.mu.Lock()
	h.client.listErr = errBackend
	h.client.mu.Unlock()

	err := h.c.SelectFolder(context.Background(), "f1", "Projects")
	assert.ErrorIs(t, err, ErrRemoteFailure)

	assert.Equal(t, []string{"f1", "x2", "x1"}, ids(h.c.View()))
	assert.Nil(t, h.c.Snapshot().ListingFolderID)
	assert.Equal(t, PhaseReady, h.c.Phase())

	note := h.nextNote(t)
	assert.Equal(t, events.LevelError, note.Level)
	assert.Equal(t, "Unable to load files", note.Message)

	require.Error(t, h.c.Refresh(context.Background()))
	assert.Equal(t, []string{"f1", "x2", "x1"}, ids(h.c.View()))
	assert.Equal(t, PhaseReady, h.c.Phase())
}

func TestCallerCancelIsNotReported(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	ctx, cancel := context.WithCancel(context.Background())
	h.client.gate("f1")
	done := make(chan error, 1)
	go func() { done <- h.c.SelectFolder(ctx, "f1", "Projects") }()
	<-h.client.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, PhaseReady, h.c.Phase())
	assert.Nil(t, h.c.Snapshot().ListingFolderID)

	ctx, cancel = context.WithCancel(context.Background())
	h.client.mu.Lock()
	h.client.mutGate = make(chan struct{})
	h.client.mu.Unlock()
	go func() { done <- h.c.Rename(ctx, "x1", "b.pdf") }()
	<-h.client.mutStarted
	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRemoteFailure)
	assert.Equal(t, PhaseReady, h.c.Phase())

	select {
	case ev := <-h.notes:
		t.Fatalf("unexpected notification %q", ev.(*events.NotificationEvent).Message)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSelectFolderAndGoHome(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	_, foldersBefore := h.client.counts()

	require.NoError(t, h.c.SelectFolder(context.Background(), "f1", "Projects"))
	assert.Equal(t, "Projects", h.c.Context().FolderName)
	assert.Equal(t, []string{"p1"}, ids(h.c.View()))

	require.NoError(t, h.c.GoHome(context.Background()))
	assert.True(t, h.c.Context().AtRoot())
	assert.Len(t, h.c.View(), 3)

	_, foldersAfter := h.client.counts()
	assert.Equal(t, foldersBefore, foldersAfter, "navigation must not refetch the folder index")

	assert.ErrorIs(t, h.c.SelectFolder(context.Background(), "", "x"), ErrValidation)
}

func TestSearchAndSortDoNotFetch(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	listBefore, _ := h.client.counts()

	h.c.SetQuery("a")
	assert.Equal(t, []string{"x1"}, ids(h.c.View()))

	h.c.SetQuery("z")
	assert.Empty(t, h.c.View())

	h.c.SetQuery("")
	h.c.SetSort(SortByName)
	assert.Equal(t, []string{"x1", "x2", "f1"}, ids(h.c.View()))

	listAfter, _ := h.client.counts()
	assert.Equal(t, listBefore, listAfter)
}

func TestStaleListingIsDiscarded(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	release := h.client.gate("f1")
	slow := make(chan error, 1)
	go func() { slow <- h.c.SelectFolder(context.Background(), "f1", "Projects") }()
	require.Equal(t, "f1", <-h.client.started)
	assert.Equal(t, PhaseLoading, h.c.Phase())

	require.NoError(t, h.c.SelectFolder(context.Background(), "f2", "Quotes"))
	assert.Equal(t, []string{"q1"}, ids(h.c.View()))

	close(release)
	require.NoError(t, <-slow)

	snap := h.c.Snapshot()
	assert.Equal(t, "Quotes", snap.Context.FolderName)
	assert.Equal(t, "f2", models.Deref(snap.ListingFolderID))
	assert.Equal(t, []string{"q1"}, ids(snap.View))
	assert.Equal(t, PhaseReady, snap.Phase)

	count, err := testutil.GatherAndCount(h.metrics.Registry(), "drive_stale_responses_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUnmountCancelsPendingFetch(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	h.client.gate("f1")
	done := make(chan error, 1)
	go func() { done <- h.c.SelectFolder(context.Background(), "f1", "Projects") }()
	<-h.client.started

	h.c.Unmount()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("pending fetch was not cancelled")
	}
	assert.Equal(t, PhaseIdle, h.c.Phase())
	assert.Equal(t, []string{"f1", "x2", "x1"}, ids(h.c.View()), "listing must not change after unmount")

	assert.ErrorIs(t, h.c.GoHome(context.Background()), ErrNotMounted)
	assert.ErrorIs(t, h.c.Delete(context.Background(), "x1"), ErrNotMounted)
}

func TestRenameRefetchesListing(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	_, foldersBefore := h.client.counts()

	require.NoError(t, h.c.Rename(context.Background(), "x1", "b.pdf"))

	r, ok := h.c.listing.FindByID("x1")
	require.True(t, ok)
	assert.Equal(t, "b.pdf", r.Name)

	note := h.nextNote(t)
	assert.Equal(t, events.LevelSuccess, note.Level)
	assert.Equal(t, "Renamed", note.Message)

	_, foldersAfter := h.client.counts()
	assert.Equal(t, foldersBefore, foldersAfter)
	assert.Equal(t, PhaseReady, h.c.Phase())
}

func TestEmptyNameIssuesNoCall(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	require.NoError(t, h.c.Rename(context.Background(), "x1", ""))
	require.NoError(t, h.c.CreateFolder(context.Background(), ""))
	assert.Zero(t, h.client.renameCalls)
	assert.Zero(t, h.client.createCalls)
}

func TestFailedDeleteKeepsCache(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	listBefore, _ := h.client.counts()
	h.client.mutErr = errBackend

	err := h.c.Delete(context.Background(), "x1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteFailure)

	_, ok := h.c.listing.FindByID("x1")
	assert.True(t, ok, "a failed delete must leave the item in place")

	note := h.nextNote(t)
	assert.Equal(t, events.LevelError, note.Level)
	assert.Equal(t, "Delete failed", note.Message)

	listAfter, _ := h.client.counts()
	assert.Equal(t, listBefore, listAfter, "no refresh after a failed mutation")
	assert.Equal(t, PhaseReady, h.c.Phase())
}

func TestDeleteRemovesItem(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	require.NoError(t, h.c.Delete(context.Background(), "x1"))
	_, ok := h.c.listing.FindByID("x1")
	assert.False(t, ok)
	assert.Equal(t, "Deleted", h.nextNote(t).Message)
}

func TestConcurrentMutationRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	gate := make(chan struct{})
	h.client.mutGate = gate
	done := make(chan error, 1)
	go func() { done <- h.c.Rename(context.Background(), "x1", "b.pdf") }()
	<-h.client.mutStarted
	assert.Equal(t, PhaseMutating, h.c.Phase())

	err := h.c.Delete(context.Background(), "x2")
	assert.ErrorIs(t, err, ErrMutationInProgress)
	assert.Zero(t, h.client.deleteCalls)
	assert.Equal(t, "Another change is still in progress", h.nextNote(t).Message)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, PhaseReady, h.c.Phase())

	h.client.mu.Lock()
	h.client.mutGate = nil
	h.client.mu.Unlock()
	require.NoError(t, h.c.Delete(context.Background(), "x2"))
}

func TestMutationTimeout(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MutationTimeout = 20 * time.Millisecond })
	h.mount(t)
	h.client.mutGate = make(chan struct{})

	err := h.c.Rename(context.Background(), "x1", "late.pdf")
	assert.ErrorIs(t, err, ErrRemoteFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, PhaseReady, h.c.Phase())
}

func TestCreateFolderRefreshesFolderIndexOnly(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	listBefore, foldersBefore := h.client.counts()

	require.NoError(t, h.c.CreateFolder(context.Background(), "Invoices"))

	listAfter, foldersAfter := h.client.counts()
	assert.Equal(t, listBefore, listAfter)
	assert.Equal(t, foldersBefore+1, foldersAfter)
	assert.Len(t, h.c.Folders(), 3)
	assert.Equal(t, "Folder created", h.nextNote(t).Message)
}

func TestCreateFolderDoesNotJoinEarlierFolderFetch(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	gate := h.client.gateFolders()
	done := make(chan error, 1)
	go func() { done <- h.c.Refresh(context.Background()) }()
	<-h.client.foldersStarted

	require.NoError(t, h.c.CreateFolder(context.Background(), "Reports"))
	assert.Contains(t, folderNames(h.c.Folders()), "Reports")

	close(gate)
	require.NoError(t, <-done)
	assert.Contains(t, folderNames(h.c.Folders()), "Reports", "older folder fetch must not overwrite the newer index")
	count, err := testutil.GatherAndCount(h.metrics.Registry(), "drive_stale_responses_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func folderNames(items []models.Resource) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func TestUploadIntoCurrentFolder(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	require.NoError(t, h.c.SelectFolder(context.Background(), "f1", "Projects"))

	require.NoError(t, h.c.Upload(context.Background(), strings.NewReader("hello"), "hello.txt"))

	assert.Equal(t, "hello", h.client.uploaded["hello.txt"])
	_, ok := h.c.listing.FindByID("up-hello.txt")
	assert.True(t, ok)
	assert.Equal(t, "Uploaded to Projects", h.nextNote(t).Message)

	err := h.c.Upload(context.Background(), strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOpenAndDownload(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	url, err := h.c.Open(context.Background(), "x1")
	require.NoError(t, err)
	assert.Equal(t, h.client.accessURL, url)
	assert.Equal(t, []string{url}, h.viewer.opened)

	url, err = h.c.Download(context.Background(), "x1")
	require.NoError(t, err)
	assert.Equal(t, []string{url}, h.viewer.redirects)

	assert.Equal(t, []string{"x1", "x1"}, h.client.resolved, "a fresh URL is resolved every time")
}

func TestOpenFolderRefused(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	_, err := h.c.Open(context.Background(), "f1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.c.Download(context.Background(), "f2")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, h.client.resolved)
}

func TestOpenFailureNotifies(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	h.client.accessErr = errBackend

	_, err := h.c.Open(context.Background(), "x1")
	assert.ErrorIs(t, err, ErrRemoteFailure)
	assert.Empty(t, h.viewer.opened)
	assert.Equal(t, "Unable to open file", h.nextNote(t).Message)
}

func answer(res dialog.Result) dialog.PrompterFunc {
	return func(context.Context, dialog.Request) (dialog.Result, error) {
		return res, nil
	}
}

func TestRequestRenamePrefillsCurrentName(t *testing.T) {
	var seen dialog.Request
	h := newHarness(t, func(o *Options) {
		o.Prompter = dialog.PrompterFunc(func(_ context.Context, req dialog.Request) (dialog.Result, error) {
			seen = req
			return dialog.Confirmed("b.pdf"), nil
		})
	})
	h.mount(t)

	require.NoError(t, h.c.RequestRename(context.Background(), "x1"))
	assert.Equal(t, dialog.KindRename, seen.Kind)
	assert.Equal(t, "a.pdf", seen.Default)
	assert.Equal(t, 1, h.client.renameCalls)
}

func TestRequestCancelledIssuesNoCall(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Prompter = answer(dialog.Cancelled()) })
	h.mount(t)

	require.NoError(t, h.c.RequestCreateFolder(context.Background()))
	require.NoError(t, h.c.RequestRename(context.Background(), "x1"))
	require.NoError(t, h.c.RequestDelete(context.Background(), "x1"))
	assert.Zero(t, h.client.createCalls+h.client.renameCalls+h.client.deleteCalls)
}

func TestRequestDeleteStrictMismatch(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.ConfirmDeleteByName = true
		o.Prompter = answer(dialog.Confirmed("wrong.pdf"))
	})
	h.mount(t)

	err := h.c.RequestDelete(context.Background(), "x1")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, h.client.deleteCalls)
	assert.Equal(t, "Name does not match, nothing was deleted", h.nextNote(t).Message)
}

func TestRequestDeleteStrictMatch(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.ConfirmDeleteByName = true
		o.Prompter = answer(dialog.Confirmed("a.pdf"))
	})
	h.mount(t)

	require.NoError(t, h.c.RequestDelete(context.Background(), "x1"))
	assert.Equal(t, 1, h.client.deleteCalls)
}

func TestRequestUnknownItem(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Prompter = answer(dialog.Confirmed("x")) })
	h.mount(t)

	assert.ErrorIs(t, h.c.RequestRename(context.Background(), "nope"), ErrValidation)
	assert.ErrorIs(t, h.c.RequestDelete(context.Background(), "nope"), ErrValidation)
}

func TestRequestWithoutPrompter(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	assert.ErrorIs(t, h.c.RequestCreateFolder(context.Background()), ErrValidation)
}

func TestPhaseEvents(t *testing.T) {
	h := newHarness(t, nil)
	phases := h.bus.Subscribe(events.EventPhaseChanged)
	h.mount(t)
	h.c.Unmount()

	var got []string
	for {
		select {
		case ev := <-phases:
			got = append(got, ev.(*events.PhaseChangedEvent).New)
			continue
		default:
		}
		break
	}
	require.NotEmpty(t, got)
	assert.Equal(t, "Loading", got[0])
	assert.Equal(t, "Idle", got[len(got)-1])
	assert.Contains(t, got, "Ready")
}
