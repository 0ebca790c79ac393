package watcher

import "sync"

// Mode selects which file events count as a "new file" worth staging.
type Mode string

const (
	// ModeCreate requests staging as soon as a file's creation is observed.
	ModeCreate Mode = "create"

	// ModeSave defers the request until the first write after creation,
	// so empty just-created buffers are not staged.
	ModeSave Mode = "save"
)

// Valid reports whether m is a known trigger mode.
func (m Mode) Valid() bool {
	return m == ModeCreate || m == ModeSave
}

// Translator narrows a raw file event stream down to staging requests
// according to the trigger mode. For ModeSave it keeps a tracking set of
// paths seen created but not yet written. The staging engine itself knows
// nothing about trigger modes.
type Translator struct {
	mode    Mode
	request func(path string)

	mu      sync.Mutex
	created map[string]struct{}
}

// NewTranslator creates a translator that forwards qualifying paths to
// request.
func NewTranslator(mode Mode, request func(path string)) *Translator {
	return &Translator{
		mode:    mode,
		request: request,
		created: make(map[string]struct{}),
	}
}

// HandleCreate processes a file-creation event.
func (t *Translator) HandleCreate(path string) {
	switch t.mode {
	case ModeSave:
		t.mu.Lock()
		t.created[path] = struct{}{}
		t.mu.Unlock()
	default:
		t.request(path)
	}
}

// HandleWrite processes a file-write event. In ModeSave the first write to
// a tracked created path triggers the request and drops it from the set.
func (t *Translator) HandleWrite(path string) {
	if t.mode != ModeSave {
		return
	}

	t.mu.Lock()
	_, ok := t.created[path]
	if ok {
		delete(t.created, path)
	}
	t.mu.Unlock()

	if ok {
		t.request(path)
	}
}

// Forget drops path from the tracking set (removal or rename events).
func (t *Translator) Forget(path string) {
	t.mu.Lock()
	delete(t.created, path)
	t.mu.Unlock()
}

// TrackedCount returns the number of created-but-unwritten paths being
// tracked.
func (t *Translator) TrackedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.created)
}
