package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitebox/sitebox/internal/client/workspace"
	"github.com/sitebox/sitebox/internal/sitesdk"
	"github.com/sitebox/sitebox/internal/utils"
)

type remoteRec struct {
	content    string
	modifiedAt time.Time
}

// fakeServer is an in-memory sync API keyed by site name.
type fakeServer struct {
	mu    sync.Mutex
	files map[string]remoteRec

	uploadStatus int
	uploadBody   string

	listStatus   int
	statusStatus int

	downloads atomic.Int64
	uploads   atomic.Int64
	lists     atomic.Int64

	srv *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{files: make(map[string]remoteRec)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) put(siteName, content string, modifiedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[siteName] = remoteRec{content: content, modifiedAt: modifiedAt}
}

func (f *fakeServer) get(siteName string) (remoteRec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.files[siteName]
	return rec, ok
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/sync/status":
		if f.statusStatus != 0 {
			http.Error(w, `{"error":"bad key"}`, f.statusStatus)
			return
		}
		writeJSON(w, map[string]any{"serverTime": time.Now().UTC()})

	case r.URL.Path == "/sync/files":
		f.lists.Add(1)
		if f.listStatus != 0 {
			http.Error(w, `{"error":"list failed"}`, f.listStatus)
			return
		}
		f.mu.Lock()
		var entries []map[string]any
		for name, rec := range f.files {
			entries = append(entries, map[string]any{
				"filename":   name,
				"path":       name + ".html",
				"modifiedAt": rec.modifiedAt,
				"checksum":   utils.Checksum([]byte(rec.content)),
			})
		}
		f.mu.Unlock()
		writeJSON(w, map[string]any{"files": entries})

	case strings.HasPrefix(r.URL.Path, "/sync/download/"):
		f.downloads.Add(1)
		name := strings.TrimPrefix(r.URL.Path, "/sync/download/")
		rec, ok := f.get(name)
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{
			"content":    rec.content,
			"modifiedAt": rec.modifiedAt,
			"checksum":   utils.Checksum([]byte(rec.content)),
		})

	case r.URL.Path == "/sync/upload":
		f.uploads.Add(1)
		if f.uploadStatus != 0 {
			http.Error(w, f.uploadBody, f.uploadStatus)
			return
		}
		var params sitesdk.UploadParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
			return
		}
		f.put(params.Filename, params.Content, params.ModifiedAt)
		writeJSON(w, map[string]any{
			"filename":   params.Filename,
			"modifiedAt": params.ModifiedAt,
			"checksum":   utils.Checksum([]byte(params.Content)),
		})

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// eventRecorder drains the engine's stream into an inspectable log.
type eventRecorder struct {
	mu     sync.Mutex
	events []*Event
}

func recordEvents(e *Engine) *eventRecorder {
	rec := &eventRecorder{}
	go func() {
		for ev := range e.Events() {
			rec.mu.Lock()
			rec.events = append(rec.events, ev)
			rec.mu.Unlock()
		}
	}()
	return rec
}

func (r *eventRecorder) ofType(t EventType) []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *eventRecorder) waitFor(t *testing.T, typ EventType, timeout time.Duration) *Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if evs := r.ofType(typ); len(evs) > 0 {
			return evs[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %s event within %s", typ, timeout)
	return nil
}

func newTestEngine(t *testing.T, f *fakeServer) *Engine {
	t.Helper()

	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	sdk, err := sitesdk.New(f.srv.URL, "test-key")
	require.NoError(t, err)

	e := New(ws, sdk, Options{
		PollInterval:       time.Hour,
		StabilityThreshold: 20 * time.Millisecond,
		DebounceWindow:     10 * time.Millisecond,
		MaxRetries:         3,
		RetryDelays:        []time.Duration{15 * time.Millisecond, 15 * time.Millisecond, 15 * time.Millisecond},
	})
	t.Cleanup(e.Stop)
	return e
}

func waitForUploads(t *testing.T, f *fakeServer, n int64) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if f.uploads.Load() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d uploads, saw %d", n, f.uploads.Load())
}

func TestEngine_InitialReconcileDownloadsMissing(t *testing.T) {
	f := newFakeServer(t)
	serverTime := time.Now().Add(-time.Hour).Truncate(time.Second)
	f.put("home", "<html>home</html>", serverTime)
	f.put("blog/hello", "<html>post</html>", serverTime)

	e := newTestEngine(t, f)
	rec := recordEvents(e)
	require.NoError(t, e.Start(context.Background()))

	assert.Equal(t, StateRunning, e.GetStatus().State)

	data, err := os.ReadFile(e.ws.AbsPath("home.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>home</html>", string(data))

	data, err = os.ReadFile(e.ws.AbsPath("blog/hello.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>post</html>", string(data))

	// mtime is pinned to the server's timestamp
	info, err := os.Stat(e.ws.AbsPath("home.html"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(serverTime), "mtime %s != %s", info.ModTime(), serverTime)

	stats := e.GetStatus().Stats
	assert.Equal(t, uint64(2), stats.FilesDownloaded)

	rec.waitFor(t, EventSyncStart, time.Second)
	complete := rec.waitFor(t, EventSyncComplete, time.Second)
	assert.Equal(t, "initial", complete.Data.(SyncComplete).Type)
	assert.Len(t, rec.ofType(EventFileSynced), 2)
}

func TestEngine_InitialReconcilePreservesNewerLocal(t *testing.T) {
	f := newFakeServer(t)
	f.put("home", "<html>server</html>", time.Now().Add(-time.Hour))

	e := newTestEngine(t, f)
	require.NoError(t, e.ws.Bootstrap())
	writeFile(t, e.ws.Root, "home.html", "<html>mine</html>")

	require.NoError(t, e.Start(context.Background()))

	data, err := os.ReadFile(e.ws.AbsPath("home.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>mine</html>", string(data))
	assert.Equal(t, uint64(1), e.GetStatus().Stats.FilesProtected)
	assert.Equal(t, int64(0), f.downloads.Load())
}

func TestEngine_InitialReconcileChecksumSkip(t *testing.T) {
	f := newFakeServer(t)
	serverTime := time.Now().Truncate(time.Second)
	f.put("home", "<html>same</html>", serverTime)

	e := newTestEngine(t, f)
	require.NoError(t, e.ws.Bootstrap())
	abs := writeFile(t, e.ws.Root, "home.html", "<html>same</html>")
	old := serverTime.Add(-time.Hour)
	require.NoError(t, os.Chtimes(abs, old, old))

	require.NoError(t, e.Start(context.Background()))

	assert.Equal(t, uint64(1), e.GetStatus().Stats.FilesDownloadedSkipped)
	assert.Equal(t, int64(0), f.downloads.Load())
}

func TestEngine_InitialReconcileBacksUpBeforeOverwrite(t *testing.T) {
	f := newFakeServer(t)
	serverTime := time.Now().Truncate(time.Second)
	f.put("home", "<html>v2</html>", serverTime)

	e := newTestEngine(t, f)
	require.NoError(t, e.ws.Bootstrap())
	abs := writeFile(t, e.ws.Root, "home.html", "<html>v1</html>")
	old := serverTime.Add(-time.Hour)
	require.NoError(t, os.Chtimes(abs, old, old))

	rec := recordEvents(e)
	require.NoError(t, e.Start(context.Background()))

	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "<html>v2</html>", string(data))

	ev := rec.waitFor(t, EventBackupCreated, time.Second)
	backup := ev.Data.(BackupCreated)
	assert.Equal(t, "home.html", backup.Original)

	snap, err := os.ReadFile(backup.Backup)
	require.NoError(t, err)
	assert.Equal(t, "<html>v1</html>", string(snap))
	assert.Contains(t, backup.Backup, workspace.BackupsDirName)
}

func TestEngine_InitialReconcileUploadsLocalOnly(t *testing.T) {
	f := newFakeServer(t)

	e := newTestEngine(t, f)
	require.NoError(t, e.ws.Bootstrap())
	writeFile(t, e.ws.Root, "about.html", "<html>about</html>")

	require.NoError(t, e.Start(context.Background()))

	rec, ok := f.get("about")
	require.True(t, ok, "about was not uploaded")
	assert.Equal(t, "<html>about</html>", rec.content)
	assert.Equal(t, uint64(1), e.GetStatus().Stats.FilesUploaded)
}

func TestEngine_InitialReconcileRejectsReservedName(t *testing.T) {
	f := newFakeServer(t)

	e := newTestEngine(t, f)
	require.NoError(t, e.ws.Bootstrap())
	writeFile(t, e.ws.Root, "system.html", "<html>nope</html>")

	rec := recordEvents(e)
	require.NoError(t, e.Start(context.Background()))

	_, ok := f.get("system")
	assert.False(t, ok, "reserved name must not be uploaded")

	ev := rec.waitFor(t, EventSyncError, time.Second)
	payload := ev.Data.(SyncError)
	assert.Equal(t, KindValidation, payload.Kind)
	assert.Equal(t, "system.html", payload.File)
	assert.False(t, payload.CanRetry)
}

func TestEngine_StartAbortsWhenListFails(t *testing.T) {
	f := newFakeServer(t)
	f.listStatus = http.StatusInternalServerError

	e := newTestEngine(t, f)
	err := e.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateIdle, e.GetStatus().State)
}

func TestEngine_StartAbortsWhenStatusFails(t *testing.T) {
	f := newFakeServer(t)
	f.statusStatus = http.StatusUnauthorized

	e := newTestEngine(t, f)
	rec := recordEvents(e)
	err := e.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateIdle, e.GetStatus().State)

	ev := rec.waitFor(t, EventSyncError, time.Second)
	assert.Equal(t, KindAuth, ev.Data.(SyncError).Kind)
}

func TestEngine_UploadConflictCarriesSuggestions(t *testing.T) {
	f := newFakeServer(t)
	f.uploadStatus = http.StatusConflict
	f.uploadBody = `{"message":"name already taken","details":{"suggestions":["my-site-2","my-site-3"]}}`

	e := newTestEngine(t, f)
	require.NoError(t, e.ws.Bootstrap())
	writeFile(t, e.ws.Root, "my-site.html", "<html></html>")

	rec := recordEvents(e)
	require.NoError(t, e.Start(context.Background()))

	ev := rec.waitFor(t, EventSyncConflict, time.Second)
	conflict := ev.Data.(SyncConflict)
	assert.Equal(t, "my-site.html", conflict.File)
	assert.Equal(t, "name_taken", conflict.Conflict)
	assert.Equal(t, []string{"my-site-2", "my-site-3"}, conflict.Suggestions)
	assert.Equal(t, "name already taken", conflict.Message)

	// conflicts never retry
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), f.uploads.Load())
}

func TestEngine_UploadRetriesThenFails(t *testing.T) {
	f := newFakeServer(t)
	f.uploadStatus = http.StatusInternalServerError
	f.uploadBody = `{"error":"boom"}`

	e := newTestEngine(t, f)
	require.NoError(t, e.ws.Bootstrap())
	writeFile(t, e.ws.Root, "flaky.html", "<html></html>")

	rec := recordEvents(e)
	require.NoError(t, e.Start(context.Background()))

	ev := rec.waitFor(t, EventSyncFailed, 3*time.Second)
	failed := ev.Data.(SyncFailed)
	assert.Equal(t, "flaky.html", failed.File)
	assert.Equal(t, 3, failed.Attempts)
	assert.Equal(t, PriorityCritical, failed.Priority)
	assert.True(t, failed.FinalFailure)

	// initial attempt plus three retries
	assert.Equal(t, int64(4), f.uploads.Load())
	assert.Len(t, rec.ofType(EventSyncRetry), 3)
	assert.Equal(t, 1, e.GetStatus().FailedFiles)

	// a terminally failed path is not re-queued this session
	e.handleWatchEvent(WatchEvent{Op: WatchChange, RelPath: "flaky.html"})
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(4), f.uploads.Load())
}

func TestEngine_WatchEventUploadsChange(t *testing.T) {
	f := newFakeServer(t)

	e := newTestEngine(t, f)
	rec := recordEvents(e)
	require.NoError(t, e.Start(context.Background()))

	writeFile(t, e.ws.Root, "draft.html", "<html>draft</html>")
	e.handleWatchEvent(WatchEvent{Op: WatchAdd, RelPath: "draft.html"})

	waitForUploads(t, f, 1)
	got, ok := f.get("draft")
	require.True(t, ok)
	assert.Equal(t, "<html>draft</html>", got.content)

	ev := rec.waitFor(t, EventFileSynced, time.Second)
	assert.Equal(t, ActionUpload, ev.Data.(FileSynced).Action)
}

func TestEngine_UnlinkNeverPropagates(t *testing.T) {
	f := newFakeServer(t)
	f.put("home", "<html>home</html>", time.Now().Add(-time.Hour))

	e := newTestEngine(t, f)
	require.NoError(t, e.Start(context.Background()))

	require.NoError(t, os.Remove(e.ws.AbsPath("home.html")))
	e.handleWatchEvent(WatchEvent{Op: WatchUnlink, RelPath: "home.html"})

	time.Sleep(100 * time.Millisecond)
	_, ok := f.get("home")
	assert.True(t, ok, "remote copy must survive a local delete")
	assert.Equal(t, int64(0), f.uploads.Load())
}

func TestEngine_EchoUploadSkipped(t *testing.T) {
	f := newFakeServer(t)
	f.put("home", "<html>home</html>", time.Now().Add(-time.Hour))

	e := newTestEngine(t, f)
	require.NoError(t, e.Start(context.Background()))
	require.Equal(t, uint64(1), e.GetStatus().Stats.FilesDownloaded)

	// the write the download itself caused surfaces as a change event;
	// the checksum cache recognizes the server already has these bytes
	e.handleWatchEvent(WatchEvent{Op: WatchChange, RelPath: "home.html"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.GetStatus().Stats.FilesUploadedSkipped == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, uint64(1), e.GetStatus().Stats.FilesUploadedSkipped)
	assert.Equal(t, int64(0), f.uploads.Load())
}

func TestEngine_CheckRemoteChangesPullsUpdate(t *testing.T) {
	f := newFakeServer(t)
	f.put("home", "<html>v1</html>", time.Now().Add(-2*time.Hour))

	e := newTestEngine(t, f)
	rec := recordEvents(e)
	require.NoError(t, e.Start(context.Background()))

	abs := e.ws.AbsPath("home.html")
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(abs, old, old))

	f.put("home", "<html>v2</html>", time.Now())
	require.NoError(t, e.checkRemoteChanges(context.Background()))

	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "<html>v2</html>", string(data))

	// the stale copy was snapshotted before the overwrite
	ev := rec.waitFor(t, EventBackupCreated, time.Second)
	snap, err := os.ReadFile(ev.Data.(BackupCreated).Backup)
	require.NoError(t, err)
	assert.Equal(t, "<html>v1</html>", string(snap))
}

func TestEngine_CheckRemoteChangesPreservesLocalEdit(t *testing.T) {
	f := newFakeServer(t)

	e := newTestEngine(t, f)
	require.NoError(t, e.Start(context.Background()))

	f.put("home", "<html>server</html>", time.Now().Add(-time.Hour))
	writeFile(t, e.ws.Root, "home.html", "<html>editing</html>")

	require.NoError(t, e.checkRemoteChanges(context.Background()))

	data, err := os.ReadFile(e.ws.AbsPath("home.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>editing</html>", string(data))
	assert.Equal(t, uint64(1), e.GetStatus().Stats.FilesProtected)
}

func TestEngine_CheckRemoteChangesSkipsWhileDraining(t *testing.T) {
	f := newFakeServer(t)

	e := newTestEngine(t, f)
	require.NoError(t, e.Start(context.Background()))

	e.muSync.Lock()
	err := e.checkRemoteChanges(context.Background())
	e.muSync.Unlock()

	assert.ErrorIs(t, err, ErrSyncBusy)
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	f := newFakeServer(t)

	e := newTestEngine(t, f)

	// stopping a never-started engine is a no-op
	e.Stop()

	require.NoError(t, e.Start(context.Background()))
	e.Stop()
	e.Stop()
	assert.Equal(t, StateIdle, e.GetStatus().State)
}

func TestEngine_RestartsAfterStop(t *testing.T) {
	f := newFakeServer(t)
	f.put("home", "<html>home</html>", time.Now().Add(-time.Hour))

	e := newTestEngine(t, f)
	require.NoError(t, e.Start(context.Background()))
	first := e.GetStatus().SessionID
	e.Stop()

	require.NoError(t, e.Start(context.Background()))
	status := e.GetStatus()
	assert.Equal(t, StateRunning, status.State)
	assert.NotEqual(t, first, status.SessionID)

	// counters were reset, and the second reconcile skipped the in-sync file
	assert.Equal(t, uint64(0), status.Stats.FilesDownloaded)
	assert.Equal(t, uint64(1), status.Stats.FilesDownloadedSkipped)

	// the new session accepts work again
	writeFile(t, e.ws.Root, "fresh.html", "<html>fresh</html>")
	e.handleWatchEvent(WatchEvent{Op: WatchAdd, RelPath: "fresh.html"})
	waitForUploads(t, f, 1)
}

func TestEngine_StartTwiceFails(t *testing.T) {
	f := newFakeServer(t)

	e := newTestEngine(t, f)
	require.NoError(t, e.Start(context.Background()))
	assert.ErrorIs(t, e.Start(context.Background()), ErrEngineRunning)
}

func TestEngine_AuthErrorReportedOncePerAction(t *testing.T) {
	f := newFakeServer(t)
	f.uploadStatus = http.StatusUnauthorized
	f.uploadBody = `{"error":"invalid key"}`

	e := newTestEngine(t, f)
	require.NoError(t, e.ws.Bootstrap())
	writeFile(t, e.ws.Root, "one.html", "<html>1</html>")
	writeFile(t, e.ws.Root, "two.html", "<html>2</html>")

	rec := recordEvents(e)
	require.NoError(t, e.Start(context.Background()))

	waitForUploads(t, f, 2)
	time.Sleep(50 * time.Millisecond)

	var authEvents int
	for _, ev := range rec.ofType(EventSyncError) {
		if ev.Data.(SyncError).Kind == KindAuth {
			authEvents++
		}
	}
	assert.Equal(t, 1, authEvents)

	// both failures still land in the inbox
	assert.Len(t, e.GetStatus().Stats.RecentErrors, 2)
}
