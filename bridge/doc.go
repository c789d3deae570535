// Package bridge implements the dispatch table at the center of the
// storage bridge: six named operations bound to a single owned backend
// instance.
//
// # Dispatch
//
// The Bridge answers name lookups the way a host object answers property
// lookups. Get returns a bound Callable for each of the six recognized
// operation names and reports absence for anything else, so callers can
// probe capabilities without triggering errors:
//
//	if c, ok := b.Get("setItemSync"); ok {
//	    result := c.Call("k", "string", "v", false)
//	}
//
// Callables tolerate under-supplied arguments: invoking an operation with
// fewer arguments than its declared arity, or with a mistyped argument,
// returns the operation's documented default value (false, nil, or an
// empty sequence). No invocation path raises.
//
// # Signatures
//
// Each operation carries a WIT signature describing its parameters and
// result. The signature table is flattened once into core value types for
// the wazero host module (string parameters become two i32s, booleans one
// i32, document and sequence results one packed i64) and validated at
// install time; a signature the flattening cannot express is a fatal
// configuration error before anything is published.
//
// # Ownership
//
// A Bridge holds the only strong reference to its backend. Release closes
// the backend exactly once; calls dispatched after release degrade to
// their defaults.
package bridge
