package backend

import (
	"reflect"

	"github.com/wippyai/storage-bridge/errors"
)

// Well-known type tags carried by records. The bridge and backends treat
// the tag as opaque; these constants exist for callers that write records.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
)

// Record is a stored value: the payload, its type tag, and the encryption
// directive supplied at write time.
type Record struct {
	Value     string `mapstructure:"value"`
	Type      string `mapstructure:"type"`
	Encrypted bool   `mapstructure:"encrypted"`
}

// Backend is the native storage collaborator owned by the bridge.
//
// All operations are synchronous and must return before the caller resumes.
// Mutations report success as a boolean; reads report absence through their
// second return value or an empty slice.
type Backend interface {
	// SetItem stores a record under key. Returns false on storage failure.
	SetItem(key, typ, value string, encrypted bool) bool

	// GetItem returns the record stored under key, if any.
	GetItem(key string) (Record, bool)

	// RemoveItem deletes the record under key. Returns false on failure.
	RemoveItem(key string) bool

	// Clear deletes every record. Returns false on failure.
	Clear() bool

	// AllKeys returns every key currently holding a value, in the
	// backend's own order. Never nil.
	AllKeys() []string

	// HasKey reports whether key currently holds a value.
	HasKey(key string) bool

	// Close releases backend resources. Called exactly once, at bridge
	// teardown.
	Close() error
}

// Resolve checks that v satisfies the Backend contract.
//
// Installation goes through Resolve so that a misconfigured collaborator is
// rejected before anything is published into the runtime. A nil value or a
// value of the wrong type is a fatal configuration error.
func Resolve(v any) (Backend, error) {
	if v == nil {
		return nil, errors.MissingBackend(errors.PhaseInstall)
	}
	b, ok := v.(Backend)
	if !ok {
		return nil, errors.New(errors.PhaseInstall, errors.KindSignatureMismatch).
			GoType(reflect.TypeOf(v).String()).
			Detail("value does not implement the storage backend contract").
			Build()
	}
	// A typed nil pointer satisfies the interface but dispatches to nothing.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, errors.MissingBackend(errors.PhaseInstall)
	}
	return b, nil
}
