package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/storage-bridge/backend"
	"github.com/wippyai/storage-bridge/errors"
)

// Bridge is the dispatch table bound to one owned backend instance.
//
// The bridge holds the only strong reference to the backend. Release
// closes it exactly once; dispatch after release degrades to each
// operation's default value. A Bridge serves a single logical caller
// thread per runtime instance and adds no locking around backend calls.
type Bridge struct {
	backend  backend.Backend
	ops      map[string]*Op
	order    []string
	sessions map[api.Module]*session
	sessMu   sync.Mutex
	released atomic.Bool
	closeErr error
	once     sync.Once
}

// Callable is one operation bound to a bridge. It is what a name lookup
// hands back to the caller.
type Callable struct {
	op     *Op
	bridge *Bridge
}

// New builds a bridge around a backend instance. The bridge takes
// ownership: the backend must not be closed by anyone else.
func New(b backend.Backend) (*Bridge, error) {
	if b == nil {
		return nil, errors.MissingBackend(errors.PhaseInstall)
	}

	ops := operations()
	if err := validate(ops); err != nil {
		return nil, err
	}

	br := &Bridge{
		backend:  b,
		ops:      make(map[string]*Op, len(ops)),
		order:    make([]string, 0, len(ops)),
		sessions: make(map[api.Module]*session),
	}
	for _, op := range ops {
		br.ops[op.Name] = op
		br.order = append(br.order, op.Name)
	}
	return br, nil
}

// Get answers a name lookup. Unrecognized names report absence, not an
// error, so callers can probe for capabilities.
func (br *Bridge) Get(name string) (*Callable, bool) {
	op, ok := br.ops[name]
	if !ok {
		return nil, false
	}
	return &Callable{op: op, bridge: br}, true
}

// Invoke is the dynamic call path: look up name and call it. An
// unrecognized name returns the absent value (nil).
func (br *Bridge) Invoke(name string, args ...any) any {
	c, ok := br.Get(name)
	if !ok {
		return nil
	}
	return c.Call(args...)
}

// Operations returns the recognized operation names in publication order.
func (br *Bridge) Operations() []string {
	names := make([]string, len(br.order))
	copy(names, br.order)
	return names
}

// Exports returns the operation table in publication order. Installers use
// it to publish one host export per operation.
func (br *Bridge) Exports() []*Op {
	exports := make([]*Op, 0, len(br.order))
	for _, name := range br.order {
		exports = append(exports, br.ops[name])
	}
	return exports
}

// Released reports whether the backend has been released.
func (br *Bridge) Released() bool {
	return br.released.Load()
}

// Release closes the owned backend. Safe to call more than once; only the
// first call releases, and later calls return the first result.
func (br *Bridge) Release() error {
	br.once.Do(func() {
		br.released.Store(true)
		br.sessMu.Lock()
		br.sessions = nil
		br.sessMu.Unlock()
		br.closeErr = br.backend.Close()
		Logger().Debug("bridge released", zap.Error(br.closeErr))
	})
	return br.closeErr
}

// Name returns the operation name.
func (c *Callable) Name() string {
	return c.op.Name
}

// Arity returns the declared argument count.
func (c *Callable) Arity() int {
	return c.op.Arity
}

// Default returns the operation's documented default value.
func (c *Callable) Default() any {
	return c.op.Default()
}

// Call invokes the operation synchronously. Fewer arguments than the
// declared arity, a mistyped argument, or a released bridge all yield the
// operation's default value; Call never panics and never returns an error.
// Arguments beyond the declared arity are ignored.
func (c *Callable) Call(args ...any) any {
	op := c.op
	if c.bridge.released.Load() {
		return op.Default()
	}
	if len(args) < op.Arity {
		return op.Default()
	}
	return op.invoke(c.bridge.backend, args)
}
