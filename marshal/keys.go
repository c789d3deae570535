package marshal

import (
	"github.com/wippyai/storage-bridge/errors"
)

// List layout: one 8-byte pair per element, element pointer at offset 0 and
// element length at offset 4, both little-endian u32.
const listElemSize = 8

// LowerKeyList lowers a key sequence into guest memory using the flat list
// layout and returns the packed (ptr, count) pointer. Order and duplicates
// are preserved exactly. An empty sequence lowers to packed zero.
//
// Every allocation (the pair array and each element buffer) is tracked in
// scope, so a failure partway through leaks nothing.
func LowerKeyList(mem Memory, alloc Allocator, scope *Scope, keys []string) (uint64, error) {
	count := uint32(len(keys))
	if count == 0 {
		return 0, nil
	}

	arraySize := count * listElemSize
	arrayPtr, err := alloc.Alloc(arraySize, 4)
	if err != nil || arrayPtr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseLower, arraySize, 4)
	}
	scope.Track(arrayPtr, arraySize, 4)

	for i, key := range keys {
		elemPtr, elemLen, err := LowerString(mem, alloc, scope, key)
		if err != nil {
			return 0, err
		}

		offset := arrayPtr + uint32(i)*listElemSize
		if err := mem.WriteU32(offset, elemPtr); err != nil {
			return 0, errors.OutOfBounds(errors.PhaseLower, []string{"keys"}, offset, 4)
		}
		if err := mem.WriteU32(offset+4, elemLen); err != nil {
			return 0, errors.OutOfBounds(errors.PhaseLower, []string{"keys"}, offset+4, 4)
		}
	}

	return PackPtrLen(arrayPtr, count), nil
}

// LiftKeyList reads a flat key list out of guest memory. Used by host-side
// tooling and tests to decode what a guest would observe.
func LiftKeyList(mem Memory, packed uint64) ([]string, error) {
	arrayPtr, count := UnpackPtrLen(packed)
	if count == 0 {
		return []string{}, nil
	}

	keys := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		offset := arrayPtr + i*listElemSize
		elemPtr, err := mem.ReadU32(offset)
		if err != nil {
			return nil, errors.OutOfBounds(errors.PhaseLift, []string{"keys"}, offset, 4)
		}
		elemLen, err := mem.ReadU32(offset + 4)
		if err != nil {
			return nil, errors.OutOfBounds(errors.PhaseLift, []string{"keys"}, offset+4, 4)
		}
		key, err := LiftString(mem, elemPtr, elemLen)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
