package bridge

import (
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/storage-bridge/backend"
	"github.com/wippyai/storage-bridge/errors"
	"github.com/wippyai/storage-bridge/marshal"
)

// The six recognized operation names.
const (
	OpSetItem    = "setItemSync"
	OpGetItem    = "getItemSync"
	OpRemoveItem = "removeItemSync"
	OpClear      = "clearSync"
	OpGetAllKeys = "getAllKeysSync"
	OpHasKey     = "hasKeySync"
)

type resultKind uint8

const (
	resultBool resultKind = iota
	resultDocument
	resultKeys
)

// Op is one bridge operation: its name, declared arity, WIT signature, and
// the handler bound at dispatch time.
type Op struct {
	Name   string
	Arity  int
	Params []wit.Type
	Result wit.Type
	kind   resultKind
	invoke func(b backend.Backend, args []any) any
}

// Default returns the operation's documented safe default: false for
// boolean results, nil for the document result, an empty sequence for the
// key listing.
func (o *Op) Default() any {
	switch o.kind {
	case resultDocument:
		return nil
	case resultKeys:
		return []string{}
	default:
		return false
	}
}

// recordType is the WIT shape of the structured result.
func recordType() *wit.TypeDef {
	return &wit.TypeDef{
		Kind: &wit.Record{
			Fields: []wit.Field{
				{Name: "value", Type: wit.String{}},
				{Name: "type", Type: wit.String{}},
				{Name: "encrypted", Type: wit.Bool{}},
			},
		},
	}
}

// operations builds the signature table. Order matters: it is the
// publication order of the host module exports.
func operations() []*Op {
	return []*Op{
		{
			Name:   OpSetItem,
			Arity:  4,
			Params: []wit.Type{wit.String{}, wit.String{}, wit.String{}, wit.Bool{}},
			Result: wit.Bool{},
			kind:   resultBool,
			invoke: opSetItem,
		},
		{
			Name:   OpGetItem,
			Arity:  1,
			Params: []wit.Type{wit.String{}},
			Result: &wit.TypeDef{Kind: &wit.Option{Type: recordType()}},
			kind:   resultDocument,
			invoke: opGetItem,
		},
		{
			Name:   OpRemoveItem,
			Arity:  1,
			Params: []wit.Type{wit.String{}},
			Result: wit.Bool{},
			kind:   resultBool,
			invoke: opRemoveItem,
		},
		{
			Name:   OpClear,
			Arity:  0,
			Params: nil,
			Result: wit.Bool{},
			kind:   resultBool,
			invoke: opClear,
		},
		{
			Name:   OpGetAllKeys,
			Arity:  0,
			Params: nil,
			Result: &wit.TypeDef{Kind: &wit.List{Type: wit.String{}}},
			kind:   resultKeys,
			invoke: opGetAllKeys,
		},
		{
			Name:   OpHasKey,
			Arity:  1,
			Params: []wit.Type{wit.String{}},
			Result: wit.Bool{},
			kind:   resultBool,
			invoke: opHasKey,
		},
	}
}

func opSetItem(b backend.Backend, args []any) any {
	key, ok1 := args[0].(string)
	typ, ok2 := args[1].(string)
	value, ok3 := args[2].(string)
	encrypted, ok4 := args[3].(bool)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return b.SetItem(key, typ, value, encrypted)
}

func opGetItem(b backend.Backend, args []any) any {
	key, ok := args[0].(string)
	if !ok {
		return nil
	}
	rec, found := b.GetItem(key)
	if !found {
		return nil
	}
	doc, err := marshal.RecordDocument(rec)
	if err != nil {
		return nil
	}
	return doc
}

func opRemoveItem(b backend.Backend, args []any) any {
	key, ok := args[0].(string)
	if !ok {
		return false
	}
	return b.RemoveItem(key)
}

func opClear(b backend.Backend, _ []any) any {
	return b.Clear()
}

func opGetAllKeys(b backend.Backend, _ []any) any {
	keys := b.AllKeys()
	if keys == nil {
		keys = []string{}
	}
	return keys
}

func opHasKey(b backend.Backend, args []any) any {
	key, ok := args[0].(string)
	if !ok {
		return false
	}
	return b.HasKey(key)
}

// FlattenParams lowers a WIT parameter list to core value types: a string
// becomes (ptr, len) i32 pairs, a bool one i32.
func FlattenParams(op string, params []wit.Type) ([]api.ValueType, error) {
	flat := make([]api.ValueType, 0, len(params)*2)
	for _, p := range params {
		switch p.(type) {
		case wit.String:
			flat = append(flat, api.ValueTypeI32, api.ValueTypeI32)
		case wit.Bool:
			flat = append(flat, api.ValueTypeI32)
		default:
			return nil, errors.SignatureMismatch(errors.PhaseInstall, op,
				"parameter type not expressible in the bridge ABI")
		}
	}
	return flat, nil
}

// FlattenResult lowers a WIT result type to core value types: bool becomes
// one i32, document and sequence results one packed i64.
func FlattenResult(op string, result wit.Type) ([]api.ValueType, error) {
	switch result.(type) {
	case nil:
		return nil, nil
	case wit.Bool:
		return []api.ValueType{api.ValueTypeI32}, nil
	case *wit.TypeDef:
		return []api.ValueType{api.ValueTypeI64}, nil
	default:
		return nil, errors.SignatureMismatch(errors.PhaseInstall, op,
			"result type not expressible in the bridge ABI")
	}
}

// validate checks the whole signature table once. A table entry the
// flattening cannot express, or whose arity disagrees with its parameter
// list, is a fatal configuration error.
func validate(ops []*Op) error {
	for _, op := range ops {
		if op.invoke == nil {
			return errors.SignatureMismatch(errors.PhaseInstall, op.Name, "no handler bound")
		}
		if op.Arity != len(op.Params) {
			return errors.SignatureMismatch(errors.PhaseInstall, op.Name,
				"declared arity disagrees with parameter list")
		}
		if _, err := FlattenParams(op.Name, op.Params); err != nil {
			return err
		}
		if _, err := FlattenResult(op.Name, op.Result); err != nil {
			return err
		}
	}
	return nil
}
