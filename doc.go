// Package storagebridge exposes a fixed set of synchronous key-value storage
// operations to WebAssembly guest code running under wazero.
//
// The bridge is a conduit between a guest runtime and a native storage
// backend. It holds no storage state of its own: every call is dispatched
// synchronously to a single backend instance owned by the bridge for the
// lifetime of the binding.
//
// # Architecture Overview
//
// The module is organized into several packages with distinct responsibilities:
//
//	storagebridge/       Root package with Memory and Allocator interfaces
//	├── backend/         Backend contract and in-memory reference implementation
//	├── bridge/          Dispatch table of bound operation callables
//	├── marshal/         Value conversion between Go and guest linear memory
//	├── install/         One-time publication of the host module into a runtime
//	├── errors/          Structured error types for diagnostics
//	└── cmd/bridge/      Interactive inspector for the six operations
//
// # Quick Start
//
// Publish the bridge into a wazero runtime:
//
//	rt := wazero.NewRuntime(ctx)
//	defer rt.Close(ctx)
//
//	inst := install.New(rt, install.DefaultOptions())
//	binding, err := inst.Install(ctx, backend.NewLocal())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer binding.Close(ctx)
//
// Guest modules then import the six operations from the "JSIPureStorage"
// module:
//
//	setItemSync, getItemSync, removeItemSync, clearSync,
//	getAllKeysSync, hasKeySync
//
// # Operations
//
// All six operations are synchronous: the calling guest thread blocks until
// the backend call returns. There is no suspension point, no asynchronous
// completion, and no cancellation. Malformed invocation never raises; each
// operation degrades to a documented default value instead.
//
// # Ownership
//
// The bridge owns exactly one backend instance. The instance is released
// exactly once, when the binding is closed or replaced by a re-install.
// Temporary guest-memory allocations made while marshalling a call are
// scope-tracked and released on every exit path of that call.
package storagebridge
