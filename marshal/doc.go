// Package marshal converts values between Go and guest linear memory.
//
// The bridge's operations receive arguments as (pointer, length) ranges in
// guest memory and produce results as guest allocations. This package owns
// both directions:
//
//   - Lifting: copying UTF-8 string content out of guest memory into Go
//     strings, byte for byte.
//   - Lowering: allocating guest memory through the guest-exported
//     allocator, copying result bytes in, and handing the caller a packed
//     pointer.
//
// # Allocation scopes
//
// Every guest allocation made while lowering a result is tracked in a
// Scope. A scope is freed on every exit path of a call; on success the
// handler detaches the scope first, transferring ownership of the result
// buffers to the guest. No tracked allocation ever survives a failed call.
//
//	scope := marshal.NewScope()
//	defer scope.FreeAndRelease(alloc)
//
//	packed, err := marshal.LowerDocument(mem, alloc, scope, rec)
//	if err != nil {
//	    return 0 // scope frees the partial allocations
//	}
//	scope.Detach() // guest owns the result now
//
// # Result encodings
//
// Structured results (the {value, type, encrypted} mapping) pass through an
// intermediate document representation: the record becomes a field map,
// which is serialized to JSON and lowered into one guest buffer. Sequence
// results (the key listing) use a flat list layout: an array of 8-byte
// (ptr, len) pairs pointing at individually lowered element strings.
//
// Both encodings return a packed u64, pointer in the high 32 bits and
// length (or element count) in the low 32 bits. Packed zero is the null /
// empty-sequence value.
package marshal
