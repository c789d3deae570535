package marshal

import (
	"encoding/json"

	"github.com/go-viper/mapstructure/v2"

	"github.com/wippyai/storage-bridge/backend"
	"github.com/wippyai/storage-bridge/errors"
)

// RecordDocument converts a record into its intermediate document
// representation: the {value, type, encrypted} field map handed to the
// guest and to host-side callers of the dispatch table.
func RecordDocument(rec backend.Record) (map[string]any, error) {
	doc := make(map[string]any, 3)
	if err := mapstructure.Decode(rec, &doc); err != nil {
		return nil, errors.Wrap(errors.PhaseLower, errors.KindInvalidData, err, "record to document")
	}
	return doc, nil
}

// DocumentRecord converts an intermediate document back into a record.
// Unknown fields are ignored; a missing or mistyped field fails the
// conversion.
func DocumentRecord(doc map[string]any) (backend.Record, error) {
	var rec backend.Record
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &rec,
		ErrorUnused: false,
	})
	if err != nil {
		return backend.Record{}, errors.Wrap(errors.PhaseLift, errors.KindInvalidData, err, "document decoder")
	}
	if err := dec.Decode(doc); err != nil {
		return backend.Record{}, errors.Wrap(errors.PhaseLift, errors.KindInvalidData, err, "document to record")
	}
	return rec, nil
}

// LowerDocument lowers a document into guest memory as JSON and returns
// the packed (ptr, len) pointer. The allocation is tracked in scope;
// callers detach the scope once the result is handed to the guest. A nil
// document lowers to packed zero (null).
func LowerDocument(mem Memory, alloc Allocator, scope *Scope, doc map[string]any) (uint64, error) {
	if doc == nil {
		return 0, nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseLower, errors.KindInvalidData, err, "document to JSON")
	}

	ptr, size, err := LowerBytes(mem, alloc, scope, data)
	if err != nil {
		return 0, err
	}
	return PackPtrLen(ptr, size), nil
}

// LowerRecord converts a record to its document form and lowers it.
func LowerRecord(mem Memory, alloc Allocator, scope *Scope, rec backend.Record) (uint64, error) {
	doc, err := RecordDocument(rec)
	if err != nil {
		return 0, err
	}
	return LowerDocument(mem, alloc, scope, doc)
}

// LiftDocument reads a JSON-encoded document out of guest memory. Used by
// host-side tooling and tests to decode what a guest would observe.
func LiftDocument(mem Memory, packed uint64) (map[string]any, error) {
	ptr, length := UnpackPtrLen(packed)
	if ptr == 0 && length == 0 {
		return nil, nil
	}

	data, err := mem.Read(ptr, length)
	if err != nil {
		return nil, errors.OutOfBounds(errors.PhaseLift, []string{"document"}, ptr, length)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.PhaseLift, errors.KindInvalidData, err, "JSON to document")
	}
	return doc, nil
}
