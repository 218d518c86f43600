package update

import (
	"log/slog"
	"time"

	"github.com/solatis/docupdate/internal/restore"
)

// Engine applies update operations. It holds only configuration, so one
// Engine may be shared by concurrent callers.
type Engine struct {
	now    func() time.Time
	bridge restore.Bridge
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used by $currentDate.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithBridge sets the restore bridge used by $restore and the AndRestore
// entry points. Without one, restores always pass the value through.
func WithBridge(b restore.Bridge) Option {
	return func(e *Engine) { e.bridge = b }
}

// WithLogger sets the logger for restore decisions.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an update engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Update applies op to doc with the default engine.
func Update(doc, op any) (any, error) {
	return defaultEngine.Update(doc, op)
}

// UpdateAtPath applies op to the sub-document at path with the default engine.
func UpdateAtPath(doc any, path string, op any) (any, error) {
	return defaultEngine.UpdateAtPath(doc, path, op)
}
