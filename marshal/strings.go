package marshal

import (
	"github.com/wippyai/storage-bridge/errors"
)

// PackPtrLen packs a guest pointer and a length (or element count) into the
// u64 wire form: pointer in the high 32 bits, length in the low 32 bits.
// Packed zero is the null / empty value.
func PackPtrLen(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// UnpackPtrLen splits a packed u64 back into pointer and length.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}

// LiftString copies a UTF-8 byte range out of guest memory into a Go
// string. Content is copied byte for byte; the guest buffer is not
// referenced after return.
func LiftString(mem Memory, ptr, length uint32) (string, error) {
	if length == 0 {
		return "", nil
	}
	data, err := mem.Read(ptr, length)
	if err != nil {
		return "", errors.OutOfBounds(errors.PhaseLift, []string{"string"}, ptr, length)
	}
	return string(data), nil
}

// LowerBytes allocates a guest buffer, copies data into it, and tracks the
// allocation in scope. A zero-length payload lowers to (0, 0) without
// allocating.
func LowerBytes(mem Memory, alloc Allocator, scope *Scope, data []byte) (uint32, uint32, error) {
	size := uint32(len(data))
	if size == 0 {
		return 0, 0, nil
	}

	ptr, err := alloc.Alloc(size, 1)
	if err != nil || ptr == 0 {
		return 0, 0, errors.AllocationFailed(errors.PhaseLower, size, 1)
	}
	scope.Track(ptr, size, 1)

	if err := mem.Write(ptr, data); err != nil {
		return 0, 0, errors.OutOfBounds(errors.PhaseLower, []string{"bytes"}, ptr, size)
	}
	return ptr, size, nil
}

// LowerString lowers a Go string into guest memory. See LowerBytes.
func LowerString(mem Memory, alloc Allocator, scope *Scope, s string) (uint32, uint32, error) {
	return LowerBytes(mem, alloc, scope, []byte(s))
}
