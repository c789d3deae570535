package bridge

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/storage-bridge/errors"
	"github.com/wippyai/storage-bridge/marshal"
)

// Guest allocator export names, standard name first, then fallbacks.
const (
	cabiRealloc   = "cabi_realloc"
	legacyRealloc = "canonical_abi_realloc"
	legacyAlloc   = "allocate"
	simpleAlloc   = "alloc"
	cabiFree      = "cabi_free"
	legacyDealloc = "deallocate"
	simpleFree    = "free"
)

// session is the cached per-caller resolution metadata: the calling
// module's memory and allocator exports. Resolved once per calling module
// per bridge instance; a resolution failure is detected identically on
// every call whether cached or not.
type session struct {
	mem         *guestMemory
	allocFn     api.Function
	freeFn      api.Function
	freeParams  int
	simpleAlloc bool
}

// HostFunc lowers an operation into a wazero host function. Arguments are
// lifted from the calling module's memory, the callable runs, and the
// result is lowered back. Every failure degrades to the operation's
// default on the wire; nothing ever traps the guest.
func (br *Bridge) HostFunc(op *Op) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		br.lowerCall(ctx, mod, op, stack)
	}
}

func (br *Bridge) lowerCall(ctx context.Context, mod api.Module, op *Op, stack []uint64) {
	sess, err := br.session(mod)
	if err != nil {
		Logger().Debug("session resolution failed",
			zap.String("op", op.Name),
			zap.Error(err))
		writeDefault(op, stack)
		return
	}
	br.lowerWith(sess.mem, sess.allocator(ctx), op, stack)
}

// lowerWith runs one call against explicit memory and allocator: lift
// arguments, dispatch, lower the result. Separated from session resolution
// so the marshalling path is exercised directly in tests.
func (br *Bridge) lowerWith(mem marshal.Memory, alloc marshal.Allocator, op *Op, stack []uint64) {
	args, err := liftArgs(mem, op, stack)
	if err != nil {
		Logger().Debug("argument lift failed",
			zap.String("op", op.Name),
			zap.Error(err))
		writeDefault(op, stack)
		return
	}

	result := (&Callable{op: op, bridge: br}).Call(args...)

	scope := marshal.NewScope()
	defer scope.FreeAndRelease(alloc)

	switch op.kind {
	case resultBool:
		b, _ := result.(bool)
		if b {
			stack[0] = 1
		} else {
			stack[0] = 0
		}

	case resultDocument:
		doc, _ := result.(map[string]any)
		if doc == nil {
			stack[0] = 0
			return
		}
		packed, err := marshal.LowerDocument(mem, alloc, scope, doc)
		if err != nil {
			Logger().Debug("document lower failed",
				zap.String("op", op.Name),
				zap.Error(err))
			stack[0] = 0
			return
		}
		scope.Detach()
		stack[0] = packed

	case resultKeys:
		keys, _ := result.([]string)
		packed, err := marshal.LowerKeyList(mem, alloc, scope, keys)
		if err != nil {
			Logger().Debug("key list lower failed",
				zap.String("op", op.Name),
				zap.Error(err))
			stack[0] = 0
			return
		}
		scope.Detach()
		stack[0] = packed
	}
}

// liftArgs walks the flat stack according to the WIT parameter list: a
// string occupies two slots (ptr, len), a bool one.
func liftArgs(mem marshal.Memory, op *Op, stack []uint64) ([]any, error) {
	args := make([]any, 0, len(op.Params))
	i := 0
	for _, p := range op.Params {
		switch p.(type) {
		case wit.String:
			s, err := marshal.LiftString(mem, uint32(stack[i]), uint32(stack[i+1]))
			if err != nil {
				return nil, err
			}
			args = append(args, s)
			i += 2
		case wit.Bool:
			args = append(args, stack[i] != 0)
			i++
		default:
			return nil, errors.SignatureMismatch(errors.PhaseDispatch, op.Name,
				"parameter type not expressible in the bridge ABI")
		}
	}
	return args, nil
}

// writeDefault puts the wire form of the operation's default on the stack:
// zero in every encoding (false, null document, empty sequence).
func writeDefault(op *Op, stack []uint64) {
	if len(stack) > 0 {
		stack[0] = 0
	}
}

// session resolves (or returns cached) calling-module metadata. The cache
// is keyed on the module instance, not its name: names are not identities
// in wazero (anonymous modules all report "", and a module closed and
// re-instantiated reuses its name). A cached entry whose memory no longer
// matches the instance is rebuilt.
func (br *Bridge) session(mod api.Module) (*session, error) {
	br.sessMu.Lock()
	defer br.sessMu.Unlock()

	if br.sessions == nil {
		return nil, errors.AlreadyReleased(errors.PhaseDispatch, "bridge")
	}
	if sess, ok := br.sessions[mod]; ok && sess.mem.mem == mod.Memory() {
		return sess, nil
	}

	for cached := range br.sessions {
		if cached.IsClosed() {
			delete(br.sessions, cached)
		}
	}

	sess, err := newSession(mod)
	if err != nil {
		return nil, err
	}
	br.sessions[mod] = sess
	return sess, nil
}

func newSession(mod api.Module) (*session, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseDispatch, "guest memory")
	}

	sess := &session{mem: &guestMemory{mem: mem}}

	for _, name := range []string{cabiRealloc, legacyRealloc, legacyAlloc, simpleAlloc} {
		if fn := mod.ExportedFunction(name); fn != nil {
			sess.allocFn = fn
			sess.simpleAlloc = len(fn.Definition().ParamTypes()) < 4
			break
		}
	}

	for _, name := range []string{cabiFree, legacyDealloc, simpleFree} {
		if fn := mod.ExportedFunction(name); fn != nil {
			sess.freeFn = fn
			sess.freeParams = len(fn.Definition().ParamTypes())
			break
		}
	}

	return sess, nil
}

// allocator binds the session's allocator exports to a call context.
func (s *session) allocator(ctx context.Context) marshal.Allocator {
	return &guestAllocator{ctx: ctx, sess: s}
}

type guestAllocator struct {
	ctx  context.Context
	sess *session
}

func (a *guestAllocator) Alloc(size, align uint32) (uint32, error) {
	fn := a.sess.allocFn
	if fn == nil {
		return 0, errors.NotFound(errors.PhaseLower, "guest allocator export")
	}

	var results []uint64
	var err error
	if a.sess.simpleAlloc {
		results, err = fn.Call(a.ctx, uint64(size))
	} else {
		results, err = fn.Call(a.ctx, 0, 0, uint64(align), uint64(size))
	}
	if err != nil {
		return 0, errors.Wrap(errors.PhaseLower, errors.KindAllocation, err, "guest alloc call")
	}
	if len(results) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseLower, size, align)
	}
	return uint32(results[0]), nil
}

func (a *guestAllocator) Free(ptr, size, align uint32) {
	fn := a.sess.freeFn
	if fn == nil || ptr == 0 {
		return
	}

	var err error
	if a.sess.freeParams >= 3 {
		_, err = fn.Call(a.ctx, uint64(ptr), uint64(size), uint64(align))
	} else {
		_, err = fn.Call(a.ctx, uint64(ptr))
	}
	if err != nil {
		Logger().Warn("guest free failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

// guestMemory wraps wazero memory to implement the bridge Memory interface.
type guestMemory struct {
	mem api.Memory
}

func (m *guestMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *guestMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *guestMemory) ReadU8(offset uint32) (uint8, error) {
	data, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (m *guestMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds")
	}
	return val, nil
}

func (m *guestMemory) ReadU64(offset uint32) (uint64, error) {
	val, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds")
	}
	return val, nil
}

func (m *guestMemory) WriteU8(offset uint32, value uint8) error {
	return m.Write(offset, []byte{value})
}

func (m *guestMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return fmt.Errorf("write out of bounds")
	}
	return nil
}

func (m *guestMemory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return fmt.Errorf("write out of bounds")
	}
	return nil
}
