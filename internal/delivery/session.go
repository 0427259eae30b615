package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"grd/internal/config"
	"grd/internal/fileutil"
	"grd/internal/folders"
	"grd/internal/history"
	"grd/internal/ledger"
	"grd/internal/logging"
)

var (
	// ErrLocked is returned when another run holds the directory lock.
	ErrLocked = errors.New("delivery directory is locked by another run")
	// ErrNothingToDeliver is returned when a delivery would contain no files.
	ErrNothingToDeliver = errors.New("nothing to deliver")
)

// Journal records runs. *history.Store satisfies it.
type Journal interface {
	Begin(ctx context.Context, directory, deliveryType string, number int, first bool) (history.Run, error)
	Finish(ctx context.Context, id string, counts history.Counts, runErr error) error
}

// Session carries everything a pipeline run needs.
type Session struct {
	cfg     *config.Config
	layout  folders.Layout
	folders *folders.Manager
	ledger  *ledger.Writer
	journal Journal
	logger  *slog.Logger
	now     func() time.Time
}

// Option customizes a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	journal Journal
	now     func() time.Time
}

// WithJournal records every run in j.
func WithJournal(j Journal) Option {
	return func(o *sessionOptions) { o.journal = j }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *sessionOptions) { o.now = now }
}

// NewSession constructs a session from configuration.
func NewSession(cfg *config.Config, logger *slog.Logger, opts ...Option) *Session {
	o := sessionOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	attempts, initial, maxBackoff := cfg.RetryPolicy()
	layout := folders.LayoutFromConfig(cfg)
	manager := folders.NewManager(layout, logger,
		folders.WithRetryPolicy(fileutil.RetryPolicy{Attempts: attempts, InitialBackoff: initial, MaxBackoff: maxBackoff}),
		folders.WithClock(o.now),
	)
	return &Session{
		cfg:     cfg,
		layout:  layout,
		folders: manager,
		ledger:  ledger.NewWriter(manager, logger),
		journal: o.journal,
		logger:  logging.NewComponentLogger(logger, "delivery"),
		now:     o.now,
	}
}

// Layout returns the directory conventions in use.
func (s *Session) Layout() folders.Layout {
	return s.layout
}

// Folders returns the folder manager.
func (s *Session) Folders() *folders.Manager {
	return s.folders
}

// lock takes the advisory lock of dir without blocking.
func (s *Session) lock(dir string) (func(), error) {
	path := filepath.Join(dir, s.layout.LockFile)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release directory lock", logging.String("lock", path), logging.Error(err))
		}
	}, nil
}
