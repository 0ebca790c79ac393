package engine

import (
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/stagehand/internal/config"
	"github.com/dshills/stagehand/internal/git"
	"github.com/dshills/stagehand/internal/policy"
	"github.com/dshills/stagehand/internal/scheduler"
)

// Event topics published by the engine.
const (
	TopicAdded    = "stage.added"
	TopicFailed   = "stage.failed"
	TopicTracked  = "stage.tracked"
	TopicRejected = "stage.rejected"
)

// ResultFunc receives the outcome of a completed staging attempt.
type ResultFunc func(path string, success bool, message string)

// EventPublisher publishes engine events. Satisfied by *event.Bus.
type EventPublisher interface {
	Publish(topic string, data map[string]any)
}

// Engine is the staging engine façade. Create one per working context;
// multiple independent engines may coexist.
type Engine struct {
	locator  *git.Locator
	client   *git.Client
	sched    *scheduler.Scheduler
	onResult ResultFunc
	events   EventPublisher
	log      *zap.Logger

	mu     sync.RWMutex
	cfg    config.Config
	filter *policy.Filter
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithOnResult sets the host result callback.
func WithOnResult(fn ResultFunc) Option {
	return func(e *Engine) { e.onResult = fn }
}

// WithEventPublisher sets an optional event publisher.
func WithEventPublisher(p EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithClient replaces the git client (tests inject a fake runner here).
func WithClient(c *git.Client) Option {
	return func(e *Engine) { e.client = c }
}

// New creates an engine with the given configuration snapshot.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		locator: git.NewLocator(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = git.NewClient(
			git.WithTimeout(cfg.CommandTimeout()),
			git.WithLogger(e.log),
		)
	}
	e.sched = scheduler.New(cfg.Delay(), e.evaluate)

	if err := e.Setup(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Setup (re)initializes the configuration. The root cache is cleared since
// repository topology may have changed since the last run.
func (e *Engine) Setup(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	filter, err := policy.New(cfg, e.locator)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.cfg = cfg
	e.filter = filter
	e.mu.Unlock()

	e.locator.Reset()
	e.sched.SetDelay(cfg.Delay())

	e.log.Debug("engine configured",
		zap.Bool("enabled", cfg.Enabled),
		zap.Duration("delay", cfg.Delay()),
		zap.Int("exclude_patterns", len(cfg.ExcludePatterns)),
		zap.Int("include_patterns", len(cfg.IncludePatterns)))
	return nil
}

// Config returns the active configuration snapshot.
func (e *Engine) Config() config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// RequestAdd asks the engine to stage path once its debounce delay
// elapses. The path is normalized to absolute form; unresolvable paths are
// dropped.
func (e *Engine) RequestAdd(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		e.log.Debug("dropping unresolvable path", zap.String("path", path), zap.Error(err))
		return
	}
	e.sched.Request(abs)
}

// Cleanup stops every pending timer and clears all per-path state and the
// root cache. In-flight subprocesses are not killed; their results are
// ignored.
func (e *Engine) Cleanup() {
	e.sched.Clear()
	e.locator.Reset()
	e.log.Debug("engine cleaned up")
}

// PendingCount returns the number of paths with pending or in-flight
// staging attempts.
func (e *Engine) PendingCount() int {
	return e.sched.PendingCount()
}

// evaluate runs when a path's debounce timer fires: policy first (no
// subprocess on rejection), then tracked-check, then add. release reports
// whether the attempt survived any intervening Cleanup; stale outcomes are
// never surfaced to the host.
func (e *Engine) evaluate(path string, release func() bool) {
	e.mu.RLock()
	filter := e.filter
	e.mu.RUnlock()

	decision := filter.Decide(path)
	if !decision.Accepted {
		e.log.Debug("staging rejected",
			zap.String("path", path),
			zap.String("reason", decision.Reason))
		if release() {
			e.publish(TopicRejected, path, map[string]any{"reason": decision.Reason})
		}
		return
	}

	root, rel, err := e.resolve(path)
	if err != nil {
		e.log.Debug("staging rejected", zap.String("path", path), zap.Error(err))
		if release() {
			e.publish(TopicRejected, path, map[string]any{"reason": err.Error()})
		}
		return
	}

	e.client.IsTracked(root, rel, func(tracked bool, _ string) {
		if tracked {
			// Nothing to add
			if release() {
				e.publish(TopicTracked, path, nil)
			}
			return
		}

		e.client.Add(root, rel, func(ok bool, message string) {
			if !release() {
				return
			}
			e.notify(path, ok, message)
			if ok {
				e.publish(TopicAdded, path, nil)
			} else {
				e.log.Warn("staging failed",
					zap.String("path", path),
					zap.String("message", message))
				e.publish(TopicFailed, path, map[string]any{"message": message})
			}
		})
	})
}

// resolve maps an absolute path to its repository root and repo-relative
// path.
func (e *Engine) resolve(path string) (root, rel string, err error) {
	root, ok := e.locator.FindRoot(path)
	if !ok {
		return "", "", git.ErrNotRepository
	}
	rel, ok = git.RelativeTo(path, root)
	if !ok {
		return "", "", git.ErrOutsideRepository
	}
	return root, rel, nil
}

func (e *Engine) notify(path string, success bool, message string) {
	if e.onResult != nil {
		e.onResult(path, success, message)
	}
}

func (e *Engine) publish(topic, path string, data map[string]any) {
	if e.events == nil {
		return
	}
	if data == nil {
		data = make(map[string]any)
	}
	data["path"] = path
	e.events.Publish(topic, data)
}
