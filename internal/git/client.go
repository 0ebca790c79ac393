package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner executes a git subprocess and reports its exit code and captured
// streams. err is non-nil only when the process could not be spawned or
// was cut off by the context deadline.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (exitCode int, stdout, stderr string, err error)
}

// execRunner runs the real git binary.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir string, args ...string) (int, string, string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), stdout.String(), stderr.String(), nil
		}
		return -1, stdout.String(), stderr.String(), err
	}
	return 0, stdout.String(), stderr.String(), nil
}

// Client issues asynchronous git calls. Each operation spawns exactly one
// subprocess with the repository root as its working directory and exactly
// one target path as argument; the outcome is delivered via callback once
// the process terminates. Callbacks fire exactly once per call.
//
// The client places no per-path constraints of its own; the scheduler is
// responsible for preventing duplicate concurrent calls for the same path.
type Client struct {
	timeout time.Duration
	runner  Runner
	log     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the defensive subprocess timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) ClientOption {
	return func(c *Client) { c.runner = r }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a git client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout: 10 * time.Second,
		runner:  execRunner{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsTracked reports whether relPath is known to the index of the repository
// at root. Exit code 0 means tracked. Spawn failures report false with a
// descriptive reason rather than an error.
func (c *Client) IsTracked(root, relPath string, done func(tracked bool, detail string)) {
	go func() {
		code, _, stderr, err := c.run(root, "ls-files", "--error-unmatch", "--", relPath)
		if err != nil {
			done(false, spawnFailure(err))
			return
		}
		if code == 0 {
			done(true, "tracked")
			return
		}
		done(false, strings.TrimSpace(stderr))
	}()
}

// Add stages relPath in the repository at root. Standard output is
// discarded; failures surface accumulated stderr in the message.
func (c *Client) Add(root, relPath string, done func(ok bool, message string)) {
	go func() {
		code, _, stderr, err := c.run(root, "add", "--", relPath)
		if err != nil {
			done(false, spawnFailure(err))
			return
		}
		if code == 0 {
			c.log.Debug("staged file", zap.String("root", root), zap.String("path", relPath))
			done(true, "File added successfully")
			return
		}
		done(false, fmt.Sprintf("git add failed (exit %d): %s", code, strings.TrimSpace(stderr)))
	}()
}

// FileStatus reports the two-character porcelain status code for relPath.
// The code is empty when the file is clean or the query failed; it is
// diagnostic only and never drives staging decisions.
func (c *Client) FileStatus(root, relPath string, done func(code, detail string)) {
	go func() {
		exit, stdout, stderr, err := c.run(root, "status", "--porcelain", "--", relPath)
		if err != nil {
			done("", spawnFailure(err))
			return
		}
		if exit != 0 {
			done("", strings.TrimSpace(stderr))
			return
		}

		line, _, _ := strings.Cut(stdout, "\n")
		if len(line) < 2 {
			done("", "clean")
			return
		}
		done(line[:2], strings.TrimSpace(line))
	}()
}

func (c *Client) run(dir string, args ...string) (int, string, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.runner.Run(ctx, dir, args...)
}

func spawnFailure(err error) string {
	return fmt.Sprintf("git spawn failed: %v", err)
}
