package marshal

import (
	"sync"

	storagebridge "github.com/wippyai/storage-bridge"
)

type Memory = storagebridge.Memory
type Allocator = storagebridge.Allocator

type allocation struct {
	ptr   uint32
	size  uint32
	align uint32
}

// Scope tracks guest allocations made during a single call so they can be
// released together on any exit path.
type Scope struct {
	allocations []allocation
}

var scopePool = sync.Pool{
	New: func() any {
		return &Scope{allocations: make([]allocation, 0, 8)}
	},
}

const maxPooledScopeCapacity = 128

// NewScope returns a pooled scope. Callers must Release it when done.
func NewScope() *Scope {
	return scopePool.Get().(*Scope)
}

// Track records a guest allocation for later release.
func (s *Scope) Track(ptr, size, align uint32) {
	s.allocations = append(s.allocations, allocation{ptr: ptr, size: size, align: align})
}

// Free releases every tracked allocation back to the guest allocator.
func (s *Scope) Free(alloc Allocator) {
	if alloc == nil {
		return
	}
	for _, a := range s.allocations {
		if a.ptr != 0 {
			alloc.Free(a.ptr, a.size, a.align)
		}
	}
	s.allocations = s.allocations[:0]
}

// Detach drops tracking without freeing: ownership of every tracked
// allocation transfers to the guest. Used on the success path after a
// result has been fully lowered.
func (s *Scope) Detach() {
	s.allocations = s.allocations[:0]
}

// Release returns the scope to the pool. The scope is invalid afterwards.
func (s *Scope) Release() {
	// Only pool small scopes to prevent memory bloat
	if cap(s.allocations) > maxPooledScopeCapacity {
		return
	}
	s.allocations = s.allocations[:0]
	scopePool.Put(s)
}

// FreeAndRelease frees tracked allocations and returns the scope to the pool.
func (s *Scope) FreeAndRelease(alloc Allocator) {
	s.Free(alloc)
	s.Release()
}

// Count returns the number of tracked allocations.
func (s *Scope) Count() int {
	return len(s.allocations)
}
