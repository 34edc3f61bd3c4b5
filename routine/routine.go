// Package routine runs goroutines with panic recovery.
//
// A panicking fetch or listener must not take down the process hosting the
// grid, so every background goroutine in gridcache is started through here.
package routine

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dailyyoga/gridcache/logger"
	"go.uber.org/zap"
)

// Runner starts tracked goroutines with panic recovery
type Runner interface {
	// Go executes fn in a new goroutine
	Go(fn func())
	// GoNamed executes fn in a new goroutine, tagging panic logs with name
	GoNamed(name string, fn func())
	// GoNamedWithContext executes fn with ctx in a new goroutine
	GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context))
	// Active reports how many goroutines started by this runner are still running
	Active() int
	// Wait blocks until every goroutine started by this runner has returned
	Wait()
}

type defaultRunner struct {
	log    logger.Logger
	wg     sync.WaitGroup
	active atomic.Int64
}

// New creates a new Runner with the given logger
func New(log logger.Logger) Runner {
	return &defaultRunner{log: log}
}

func (r *defaultRunner) Go(fn func()) {
	r.GoNamed("", fn)
}

func (r *defaultRunner) GoNamed(name string, fn func()) {
	r.GoNamedWithContext(context.Background(), name, func(context.Context) { fn() })
}

func (r *defaultRunner) GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	r.active.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.active.Add(-1)
		defer Recover(r.log, name)
		fn(ctx)
	}()
}

func (r *defaultRunner) Active() int {
	return int(r.active.Load())
}

func (r *defaultRunner) Wait() {
	r.wg.Wait()
}

// GoNamed runs fn in an untracked goroutine with panic recovery
func GoNamed(log logger.Logger, name string, fn func()) {
	go func() {
		defer Recover(log, name)
		fn()
	}()
}

// Recover logs a panic in progress and stops it. It must be deferred directly:
//
//	defer routine.Recover(log, "timer")
func Recover(log logger.Logger, name string) {
	if rec := recover(); rec != nil {
		fields := []zap.Field{
			zap.Any("panic", rec),
			zap.String("stack", string(debug.Stack())),
		}
		if name != "" {
			fields = append([]zap.Field{zap.String("routine", name)}, fields...)
		}
		log.Error("recovered from panic", fields...)
	}
}
