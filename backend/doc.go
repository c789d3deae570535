// Package backend defines the storage contract required of the native
// backend collaborator, plus an in-memory reference implementation.
//
// The bridge owns exactly one Backend instance per binding and dispatches
// the six storage operations to it synchronously. The backend is the sole
// owner of stored records: the bridge never caches, reinterprets, or
// re-derives record fields.
//
// # Contract
//
// A backend must implement exactly the six operations with matching
// signatures. Failure is signalled through the backend's own boolean/absent
// convention (false for mutations, absence for reads), never through panics.
// If a backend may be invoked from multiple threads, thread safety is the
// backend's responsibility; the bridge adds no locking.
//
// # Reference implementation
//
// Local is a mutex-guarded in-memory backend used by tests and the
// inspector tool. It keeps keys in insertion order so repeated AllKeys
// calls with no intervening writes return identical sequences. It does not
// persist or encrypt anything.
package backend
