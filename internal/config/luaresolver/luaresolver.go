// Package luaresolver settles Custom merge conflicts with a Lua script.
//
// The script must define a global function
//
//	function resolve(c)
//	  -- c.section, c.key, c.existing, c.incoming are literals
//	  return "new literal"  -- or nil to leave the conflict unresolved
//	end
//
// Strings, numbers and booleans are accepted as results; anything else
// leaves the conflict unresolved. The script runs in a sandbox with only
// the base, table, string and math libraries, plus a "cfg" table of
// helpers:
//
//	cfg.unquote(s)  -- s without one pair of outer quotes
//	cfg.kind(s)     -- "string", "int", "float", "bool" or "array"
//	cfg.number(s)   -- s as a number, or nil
package luaresolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config/document"
	"github.com/dshills/cfgdoc/internal/config/merge"
)

// FunctionName is the global the script must define.
const FunctionName = "resolve"

// DefaultTimeout bounds one call of the resolve function.
const DefaultTimeout = time.Second

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("lua resolver is closed")

	// ErrNoFunction is returned when the script does not define resolve.
	ErrNoFunction = errors.New("script does not define function " + FunctionName)
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout bounds each resolve call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger used for script failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver holds a sandboxed Lua state. An LState is single-threaded, so
// calls are serialized.
type Resolver struct {
	mu      sync.Mutex
	L       *lua.LState
	fn      *lua.LFunction
	timeout time.Duration
	logger  *zap.Logger
	lastErr error
	calls   int
	closed  bool
}

// New compiles script and checks that it defines resolve.
func New(script string, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	installHelpers(L)

	if err := r.run(L, func() error { return L.DoString(script) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("loading resolver script: %w", err)
	}
	fn, ok := L.GetGlobal(FunctionName).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, ErrNoFunction
	}
	r.L = L
	r.fn = fn
	return r, nil
}

// Load reads the script from path and calls New.
func Load(path string, opts ...Option) (*Resolver, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(string(src), opts...)
}

// openSafeLibraries opens base, table, string and math, then removes the
// base functions that load code from files or strings.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func installHelpers(L *lua.LState) {
	cfg := L.NewTable()
	L.SetField(cfg, "unquote", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(document.Unquote(L.CheckString(1))))
		return 1
	}))
	L.SetField(cfg, "kind", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(document.DetectType(L.CheckString(1)).String()))
		return 1
	}))
	L.SetField(cfg, "number", L.NewFunction(func(L *lua.LState) int {
		f, err := document.NewValue(L.CheckString(1)).AsDouble()
		if err != nil {
			L.Push(lua.LNil)
		} else {
			L.Push(lua.LNumber(f))
		}
		return 1
	}))
	L.SetGlobal("cfg", cfg)
}

// Resolve calls the script for c. Script errors and timeouts leave the
// conflict unresolved; the error is kept for Err.
func (r *Resolver) Resolve(c merge.Conflict) merge.Conflict {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.Resolved = false
	c.ResolvedValue = ""
	if r.closed {
		r.lastErr = ErrClosed
		return c
	}
	r.calls++

	arg := r.L.NewTable()
	r.L.SetField(arg, "section", lua.LString(c.Section))
	r.L.SetField(arg, "key", lua.LString(c.Key))
	r.L.SetField(arg, "existing", lua.LString(c.ExistingValue))
	r.L.SetField(arg, "incoming", lua.LString(c.IncomingValue))

	var ret lua.LValue = lua.LNil
	err := r.run(r.L, func() error {
		if err := r.L.CallByParam(lua.P{Fn: r.fn, NRet: 1, Protect: true}, arg); err != nil {
			return err
		}
		ret = r.L.Get(-1)
		r.L.Pop(1)
		return nil
	})
	if err != nil {
		r.lastErr = err
		r.logger.Warn("lua resolver failed",
			zap.String("section", c.Section),
			zap.String("key", c.Key),
			zap.Error(err),
		)
		return c
	}
	r.lastErr = nil

	switch v := ret.(type) {
	case lua.LString:
		c.ResolvedValue, c.Resolved = string(v), true
	case lua.LNumber:
		c.ResolvedValue, c.Resolved = v.String(), true
	case lua.LBool:
		c.ResolvedValue, c.Resolved = v.String(), true
	}
	return c
}

// run executes fn under the timeout, converting Lua panics to errors.
func (r *Resolver) run(L *lua.LState, fn func() error) (err error) {
	if r.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		L.SetContext(ctx)
		defer L.RemoveContext()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("lua panic: %v", p)
		}
	}()
	return fn()
}

// Err returns the error of the most recent Resolve call, or nil.
func (r *Resolver) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Calls returns how many times Resolve has run the script.
func (r *Resolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Close releases the Lua state. It is safe to call more than once.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.L.Close()
}
