package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dshills/stagehand/internal/config"
	"github.com/dshills/stagehand/internal/event"
	"github.com/dshills/stagehand/internal/git"
)

// fakeRunner replays canned subprocess results keyed by git subcommand and
// records every invocation.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []runnerCall
	results map[string]runnerResult
}

type runnerCall struct {
	dir  string
	args []string
}

type runnerResult struct {
	code   int
	stdout string
	stderr string
	err    error
}

func (r *fakeRunner) Run(_ context.Context, dir string, args ...string) (int, string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, runnerCall{dir: dir, args: args})
	res := r.results[args[0]]
	return res.code, res.stdout, res.stderr, res.err
}

func (r *fakeRunner) callsFor(subcommand string) []runnerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []runnerCall
	for _, c := range r.calls {
		if c.args[0] == subcommand {
			out = append(out, c)
		}
	}
	return out
}

type result struct {
	path    string
	success bool
	message string
}

// testRepo creates a directory with a .git marker and one 10-byte file.
func testRepo(t *testing.T, name string) (root, file string) {
	t.Helper()
	root = t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	file = filepath.Join(root, name)
	if err := os.WriteFile(file, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, file
}

func newTestEngine(t *testing.T, cfg config.Config, runner *fakeRunner, opts ...Option) (*Engine, chan result) {
	t.Helper()
	results := make(chan result, 10)
	opts = append(opts,
		WithClient(git.NewClient(git.WithRunner(runner))),
		WithOnResult(func(path string, success bool, message string) {
			results <- result{path: path, success: success, message: message}
		}),
	)
	e, err := New(cfg, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return e, results
}

func waitResult(t *testing.T, results chan result) result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
		return result{}
	}
}

func TestRequestAddStagesNewFile(t *testing.T) {
	root, file := testRepo(t, "a.txt")
	runner := &fakeRunner{results: map[string]runnerResult{
		"ls-files": {code: 1, stderr: "error: pathspec 'a.txt' did not match"},
		"add":      {code: 0},
	}}

	cfg := config.Default()
	cfg.DelayMs = 0
	e, results := newTestEngine(t, cfg, runner)

	e.RequestAdd(file)
	r := waitResult(t, results)

	if !r.success {
		t.Fatalf("expected success, got %+v", r)
	}
	if r.message != "File added successfully" {
		t.Errorf("message = %q", r.message)
	}
	if r.path != file {
		t.Errorf("path = %q, want %q", r.path, file)
	}

	adds := runner.callsFor("add")
	if len(adds) != 1 {
		t.Fatalf("expected 1 add call, got %d", len(adds))
	}
	if adds[0].dir != root {
		t.Errorf("working dir = %q, want %q", adds[0].dir, root)
	}
	if got := adds[0].args[len(adds[0].args)-1]; got != "a.txt" {
		t.Errorf("relative path = %q, want a.txt", got)
	}
}

func TestRequestAddExcludedFileSpawnsNothing(t *testing.T) {
	_, file := testRepo(t, "a.txt")
	runner := &fakeRunner{results: map[string]runnerResult{}}

	cfg := config.Default()
	cfg.DelayMs = 0
	cfg.ExcludePatterns = []string{"*.txt"}
	e, results := newTestEngine(t, cfg, runner)

	e.RequestAdd(file)

	runner.mu.Lock()
	calls := len(runner.calls)
	runner.mu.Unlock()
	if calls != 0 {
		t.Errorf("expected no subprocess calls, got %d", calls)
	}

	select {
	case r := <-results:
		t.Errorf("unexpected result %+v for rejected path", r)
	case <-time.After(50 * time.Millisecond):
	}

	snap := e.Status(file)
	if snap.Accepted {
		t.Error("expected rejection in status")
	}
	if snap.Reason != "File matches exclude pattern" {
		t.Errorf("reason = %q", snap.Reason)
	}
}

func TestRequestAddTrackedFileIsNoOp(t *testing.T) {
	_, file := testRepo(t, "a.txt")
	runner := &fakeRunner{results: map[string]runnerResult{
		"ls-files": {code: 0, stdout: "a.txt\n"},
	}}

	cfg := config.Default()
	cfg.DelayMs = 0

	bus := event.NewBus()
	tracked := make(chan string, 1)
	bus.Subscribe(TopicTracked, func(_ string, data map[string]any) {
		tracked <- data["path"].(string)
	})

	e, results := newTestEngine(t, cfg, runner, WithEventPublisher(bus))
	e.RequestAdd(file)

	select {
	case p := <-tracked:
		if p != file {
			t.Errorf("tracked path = %q, want %q", p, file)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tracked event not published")
	}

	if got := len(runner.callsFor("add")); got != 0 {
		t.Errorf("expected no add call for tracked file, got %d", got)
	}
	select {
	case r := <-results:
		t.Errorf("unexpected result %+v for no-op", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAddFailureSurfacesMessage(t *testing.T) {
	_, file := testRepo(t, "a.txt")
	runner := &fakeRunner{results: map[string]runnerResult{
		"ls-files": {code: 1},
		"add":      {code: 128, stderr: "fatal: unable to write index\n"},
	}}

	cfg := config.Default()
	cfg.DelayMs = 0
	e, results := newTestEngine(t, cfg, runner)

	e.RequestAdd(file)
	r := waitResult(t, results)

	if r.success {
		t.Fatal("expected failure")
	}
	if r.message == "" || r.message == "File added successfully" {
		t.Errorf("message = %q, want failure detail", r.message)
	}
}

func TestDebounceCoalescesRapidRequests(t *testing.T) {
	_, file := testRepo(t, "a.txt")
	runner := &fakeRunner{results: map[string]runnerResult{
		"ls-files": {code: 1},
		"add":      {code: 0},
	}}

	cfg := config.Default()
	cfg.DelayMs = 60
	e, results := newTestEngine(t, cfg, runner)

	e.RequestAdd(file)
	time.Sleep(20 * time.Millisecond)
	e.RequestAdd(file)
	time.Sleep(20 * time.Millisecond)
	e.RequestAdd(file)

	waitResult(t, results)
	time.Sleep(100 * time.Millisecond)

	if got := len(runner.callsFor("add")); got != 1 {
		t.Errorf("expected exactly 1 add call, got %d", got)
	}
}

func TestCleanupReleasesAllPendingState(t *testing.T) {
	root, _ := testRepo(t, "a.txt")
	runner := &fakeRunner{results: map[string]runnerResult{}}

	cfg := config.Default()
	cfg.DelayMs = 5000
	e, results := newTestEngine(t, cfg, runner)

	for i := 0; i < 5; i++ {
		e.RequestAdd(filepath.Join(root, "f", string(rune('a'+i))))
	}
	if e.PendingCount() != 5 {
		t.Fatalf("pending = %d, want 5", e.PendingCount())
	}

	e.Cleanup()

	if e.PendingCount() != 0 {
		t.Errorf("pending = %d after cleanup, want 0", e.PendingCount())
	}
	select {
	case r := <-results:
		t.Errorf("unexpected result %+v after cleanup", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSetupRecompilesFilterAndResetsCache(t *testing.T) {
	_, file := testRepo(t, "a.txt")
	runner := &fakeRunner{results: map[string]runnerResult{}}

	cfg := config.Default()
	e, _ := newTestEngine(t, cfg, runner)

	if snap := e.Status(file); !snap.Accepted {
		t.Fatalf("expected acceptance before reconfiguration, got %+v", snap)
	}

	cfg.ExcludePatterns = []string{"*.txt"}
	if err := e.Setup(cfg); err != nil {
		t.Fatal(err)
	}

	if snap := e.Status(file); snap.Accepted {
		t.Error("expected rejection after reconfiguration")
	}
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	e, _ := newTestEngine(t, cfg, &fakeRunner{})

	bad := config.Default()
	bad.DelayMs = -5
	if err := e.Setup(bad); err == nil {
		t.Fatal("expected validation error")
	}

	badPattern := config.Default()
	badPattern.ExcludePatterns = []string{"[oops"}
	if err := e.Setup(badPattern); err == nil {
		t.Fatal("expected pattern compile error")
	}
}

func TestStatusReportsRepositoryResolution(t *testing.T) {
	root, file := testRepo(t, "a.txt")
	e, _ := newTestEngine(t, config.Default(), &fakeRunner{})

	snap := e.Status(file)
	if !snap.InRepository {
		t.Fatal("expected path to be inside a repository")
	}
	if snap.Root != root {
		t.Errorf("root = %q, want %q", snap.Root, root)
	}
	if snap.RelPath != "a.txt" {
		t.Errorf("rel = %q, want a.txt", snap.RelPath)
	}
	if snap.Pending || snap.InFlight {
		t.Error("expected idle scheduler state")
	}
}
