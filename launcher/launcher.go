// Package launcher starts catalog games as detached child processes.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/arclightning/arclight/catalog"
)

var (
	// ErrGameNotFound is returned when the requested id is not in the catalog.
	ErrGameNotFound = errors.New("launcher: game not found")
	// ErrLaunchFailed matches every *LaunchError.
	ErrLaunchFailed = errors.New("launcher: launch failed")
)

// LaunchError wraps the OS error from a failed spawn.
type LaunchError struct {
	ID  string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launcher: start %q: %v", e.ID, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrLaunchFailed) hold for any LaunchError.
func (e *LaunchError) Is(target error) bool { return target == ErrLaunchFailed }

// Command is everything needed to spawn a game.
type Command struct {
	Path string
	Args []string
	Dir  string
}

// String renders the command line for logs.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Path}, c.Args...)...)
}

// Spawner starts cmd and returns the child's pid without waiting for it to exit.
type Spawner func(cmd Command) (int, error)

// Launch describes a started game.
type Launch struct {
	ID        string    `json:"id"`
	PID       int       `json:"pid"`
	Dir       string    `json:"dir"`
	StartedAt time.Time `json:"started_at"`
}

// Launcher resolves ids through the catalog and spawns the matching executable.
// Clients can only ever name an id; paths and arguments come from the catalog.
type Launcher struct {
	catalog *catalog.Catalog
	spawn   Spawner
	now     func() time.Time
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithSpawner replaces the process spawner.
func WithSpawner(s Spawner) Option {
	return func(l *Launcher) { l.spawn = s }
}

// New returns a launcher backed by cat.
func New(cat *catalog.Catalog, opts ...Option) *Launcher {
	l := &Launcher{
		catalog: cat,
		spawn:   ExecSpawner,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start spawns the game registered under id. It does not wait for the game
// to exit and never retries.
func (l *Launcher) Start(ctx context.Context, id string) (Launch, error) {
	game, ok := l.catalog.Lookup(id)
	if !ok {
		if guess, found := l.catalog.Suggest(id); found {
			slog.InfoContext(ctx, "unknown game", "id", id, "did_you_mean", guess)
		}
		return Launch{}, fmt.Errorf("%w: %q", ErrGameNotFound, id)
	}

	exe, err := filepath.Abs(game.ExePath)
	if err != nil {
		return Launch{}, &LaunchError{ID: id, Err: err}
	}
	cmd := Command{
		Path: exe,
		Args: game.ExeArgs,
		// Games expect to find their resources next to the executable.
		Dir: filepath.Dir(exe),
	}

	slog.InfoContext(ctx, "starting game", "id", id, "command", cmd.String(), "dir", cmd.Dir)
	pid, err := l.spawn(cmd)
	if err != nil {
		return Launch{}, &LaunchError{ID: id, Err: err}
	}
	return Launch{ID: id, PID: pid, Dir: cmd.Dir, StartedAt: l.now()}, nil
}

// ExecSpawner starts cmd with os/exec and reaps it in the background. The
// child is not tied to any request context, so it outlives the HTTP request.
func ExecSpawner(c Command) (int, error) {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		if err != nil {
			slog.Warn("game exited with error", "pid", pid, "path", c.Path, "error", err)
			return
		}
		slog.Info("game exited", "pid", pid, "path", c.Path)
	}()
	return pid, nil
}
