// Package script runs Lua handler scripts against the dispatcher.
//
// Scripts require the "actionflow" module to register handlers, read and
// write stores, and log. All Lua state access is serialized through a
// single goroutine because gopher-lua's LState is not goroutine-safe.
package script

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/actionflow/internal/dispatcher"
)

// ErrEngineClosed is returned when using a closed engine.
var ErrEngineClosed = errors.New("script: engine is closed")

// call is one serialized Lua operation.
type call struct {
	fn     func(L *lua.LState) error
	result chan error
}

// Engine owns a Lua state and bridges scripts to a dispatcher.
type Engine struct {
	d     *dispatcher.Dispatcher
	log   zerolog.Logger
	state *lua.LState

	queue chan *call
	done  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once

	mu   sync.Mutex
	offs []func()
}

// NewEngine creates an engine bound to a dispatcher. Call Close when done.
func NewEngine(d *dispatcher.Dispatcher, log zerolog.Logger) *Engine {
	e := &Engine{
		d:     d,
		log:   log,
		state: lua.NewState(),
		queue: make(chan *call, 64),
		done:  make(chan struct{}),
	}
	e.state.PreloadModule("actionflow", e.loader)
	applySandbox(e.state)

	e.wg.Add(1)
	go e.run()
	return e
}

// run is the only goroutine allowed to touch the Lua state.
func (e *Engine) run() {
	defer e.wg.Done()

	for {
		select {
		case <-e.done:
			e.drain()
			return
		case c := <-e.queue:
			c.result <- e.safeCall(c.fn)
			close(c.result)
		}
	}
}

// safeCall executes one operation with panic recovery.
func (e *Engine) safeCall(fn func(L *lua.LState) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script: panic: %v", r)
		}
	}()
	return fn(e.state)
}

// drain fails any operations still queued at shutdown.
func (e *Engine) drain() {
	for {
		select {
		case c := <-e.queue:
			c.result <- ErrEngineClosed
			close(c.result)
		default:
			return
		}
	}
}

// do runs fn on the Lua goroutine and waits for it to finish.
func (e *Engine) do(ctx context.Context, fn func(L *lua.LState) error) error {
	c := &call{fn: fn, result: make(chan error, 1)}

	select {
	case <-e.done:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	case e.queue <- c:
	}

	select {
	case <-e.done:
		return ErrEngineClosed
	case err := <-c.result:
		return err
	}
}

// LoadFile executes one script file.
func (e *Engine) LoadFile(path string) error {
	err := e.do(context.Background(), func(L *lua.LState) error {
		return L.DoFile(path)
	})
	if err != nil {
		return fmt.Errorf("script: loading %s: %w", path, err)
	}
	e.log.Debug().Str("path", path).Msg("script loaded")
	return nil
}

// LoadDir executes every .lua file in a directory, in name order.
func (e *Engine) LoadDir(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return fmt.Errorf("script: scanning %s: %w", dir, err)
	}
	sort.Strings(matches)

	for _, path := range matches {
		if err := e.LoadFile(path); err != nil {
			return err
		}
	}
	return nil
}

// Close unregisters all script handlers and shuts down the Lua state.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		offs := e.offs
		e.offs = nil
		e.mu.Unlock()
		for _, off := range offs {
			off()
		}

		close(e.done)
		e.wg.Wait()
		e.state.Close()
	})
}

// track records an unregister closure so Close can remove script handlers.
func (e *Engine) track(off func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offs = append(e.offs, off)
}
