// Package install publishes a storage bridge into a wazero runtime as a
// named host module.
//
// Installation is the fatal boundary: a nil or unusable backend, or a
// signature table the ABI cannot express, fails Install before anything is
// published. Once Install returns a Binding, every guest-visible failure
// degrades to the operation's documented default instead of trapping.
//
// Re-installing under a name that is already bound replaces the previous
// binding: the old host module is closed and its backend released before
// the new one is published.
package install
