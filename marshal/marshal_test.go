package marshal

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/wippyai/storage-bridge/backend"
)

// mockMemory implements Memory for testing
type mockMemory struct {
	data []byte
}

func newMockMemory(size int) *mockMemory {
	return &mockMemory{data: make([]byte, size)}
}

func (m *mockMemory) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return fmt.Errorf("out of bounds: offset=%d length=%d", offset, length)
	}
	return nil
}

func (m *mockMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *mockMemory) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *mockMemory) ReadU8(offset uint32) (uint8, error) {
	if err := m.check(offset, 1); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

func (m *mockMemory) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *mockMemory) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *mockMemory) WriteU8(offset uint32, value uint8) error {
	if err := m.check(offset, 1); err != nil {
		return err
	}
	m.data[offset] = value
	return nil
}

func (m *mockMemory) WriteU32(offset uint32, value uint32) error {
	if err := m.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

func (m *mockMemory) WriteU64(offset uint32, value uint64) error {
	if err := m.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	return nil
}

// mockAllocator implements Allocator for testing
type mockAllocator struct {
	mem    *mockMemory
	offset uint32
	freed  []uint32
}

func newMockAllocator(mem *mockMemory) *mockAllocator {
	return &mockAllocator{offset: 1024, mem: mem} // start at 1024 to test non-zero offsets
}

func alignTo(v, align uint32) uint32 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

func (a *mockAllocator) Alloc(size, align uint32) (uint32, error) {
	a.offset = alignTo(a.offset, align)
	ptr := a.offset
	a.offset += size
	return ptr, nil
}

func (a *mockAllocator) Free(ptr, size, align uint32) {
	a.freed = append(a.freed, ptr)
}

// failingAllocator fails after n successful allocations
type failingAllocator struct {
	inner *mockAllocator
	n     int
}

func (a *failingAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.n <= 0 {
		return 0, fmt.Errorf("alloc failed")
	}
	a.n--
	return a.inner.Alloc(size, align)
}

func (a *failingAllocator) Free(ptr, size, align uint32) {
	a.inner.Free(ptr, size, align)
}

func TestPackPtrLen(t *testing.T) {
	tests := []struct {
		name   string
		ptr    uint32
		length uint32
	}{
		{"zero", 0, 0},
		{"small", 1024, 5},
		{"max", 0xFFFFFFFF, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := PackPtrLen(tt.ptr, tt.length)
			ptr, length := UnpackPtrLen(packed)
			if ptr != tt.ptr || length != tt.length {
				t.Errorf("round trip = (%d, %d), want (%d, %d)", ptr, length, tt.ptr, tt.length)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"ascii", "hello"},
		{"unicode", "héllo wörld \U0001F600"},
		{"binary-ish", "a\x00b\xffc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newMockMemory(4096)
			alloc := newMockAllocator(mem)
			scope := NewScope()
			defer scope.FreeAndRelease(alloc)

			ptr, length, err := LowerString(mem, alloc, scope, tt.value)
			if err != nil {
				t.Fatalf("LowerString: %v", err)
			}

			got, err := LiftString(mem, ptr, length)
			if err != nil {
				t.Fatalf("LiftString: %v", err)
			}
			if got != tt.value {
				t.Errorf("round trip = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestLiftString_OutOfBounds(t *testing.T) {
	mem := newMockMemory(64)
	if _, err := LiftString(mem, 60, 16); err == nil {
		t.Error("LiftString past end of memory should fail")
	}
}

func TestLowerString_EmptyDoesNotAllocate(t *testing.T) {
	mem := newMockMemory(64)
	alloc := newMockAllocator(mem)
	scope := NewScope()
	defer scope.FreeAndRelease(alloc)

	ptr, length, err := LowerString(mem, alloc, scope, "")
	if err != nil {
		t.Fatalf("LowerString: %v", err)
	}
	if ptr != 0 || length != 0 {
		t.Errorf("empty string = (%d, %d), want (0, 0)", ptr, length)
	}
	if scope.Count() != 0 {
		t.Errorf("scope tracked %d allocations, want 0", scope.Count())
	}
}

func TestScope_FreeReleasesAll(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator(mem)
	scope := NewScope()

	for i := 0; i < 3; i++ {
		if _, _, err := LowerString(mem, alloc, scope, "payload"); err != nil {
			t.Fatalf("LowerString: %v", err)
		}
	}
	if scope.Count() != 3 {
		t.Fatalf("scope tracked %d allocations, want 3", scope.Count())
	}

	scope.FreeAndRelease(alloc)
	if len(alloc.freed) != 3 {
		t.Errorf("allocator freed %d buffers, want 3", len(alloc.freed))
	}
}

func TestScope_DetachTransfersOwnership(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator(mem)
	scope := NewScope()

	if _, _, err := LowerString(mem, alloc, scope, "kept"); err != nil {
		t.Fatalf("LowerString: %v", err)
	}
	scope.Detach()
	scope.FreeAndRelease(alloc)

	if len(alloc.freed) != 0 {
		t.Errorf("allocator freed %d buffers after detach, want 0", len(alloc.freed))
	}
}

func TestRecordDocument(t *testing.T) {
	rec := backend.Record{Value: "hello", Type: backend.TypeString, Encrypted: true}

	doc, err := RecordDocument(rec)
	if err != nil {
		t.Fatalf("RecordDocument: %v", err)
	}
	if doc["value"] != "hello" || doc["type"] != "string" || doc["encrypted"] != true {
		t.Errorf("document = %v", doc)
	}

	back, err := DocumentRecord(doc)
	if err != nil {
		t.Fatalf("DocumentRecord: %v", err)
	}
	if back != rec {
		t.Errorf("round trip = %+v, want %+v", back, rec)
	}
}

func TestDocumentRecord_Malformed(t *testing.T) {
	tests := []struct {
		doc  map[string]any
		name string
	}{
		{map[string]any{"value": 42, "type": "string", "encrypted": false}, "mistyped value"},
		{map[string]any{"value": "v", "type": "string", "encrypted": "yes"}, "mistyped flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DocumentRecord(tt.doc); err == nil {
				t.Error("DocumentRecord should reject malformed document")
			}
		})
	}
}

func TestLowerDocument_RoundTrip(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator(mem)
	scope := NewScope()
	defer scope.FreeAndRelease(alloc)

	rec := backend.Record{Value: "hello", Type: backend.TypeString, Encrypted: false}
	packed, err := LowerRecord(mem, alloc, scope, rec)
	if err != nil {
		t.Fatalf("LowerRecord: %v", err)
	}
	if packed == 0 {
		t.Fatal("LowerRecord returned packed zero for a present record")
	}

	doc, err := LiftDocument(mem, packed)
	if err != nil {
		t.Fatalf("LiftDocument: %v", err)
	}
	if doc["value"] != "hello" || doc["type"] != "string" || doc["encrypted"] != false {
		t.Errorf("document = %v", doc)
	}
}

func TestLiftDocument_Null(t *testing.T) {
	mem := newMockMemory(64)
	doc, err := LiftDocument(mem, 0)
	if err != nil {
		t.Fatalf("LiftDocument: %v", err)
	}
	if doc != nil {
		t.Errorf("packed zero should lift to nil document, got %v", doc)
	}
}

func TestLowerKeyList_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		keys []string
	}{
		{"empty", []string{}},
		{"single", []string{"a"}},
		{"several", []string{"c", "a", "b"}},
		{"duplicates preserved", []string{"x", "x", "y"}},
		{"empty element", []string{"", "second"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newMockMemory(8192)
			alloc := newMockAllocator(mem)
			scope := NewScope()
			defer scope.FreeAndRelease(alloc)

			packed, err := LowerKeyList(mem, alloc, scope, tt.keys)
			if err != nil {
				t.Fatalf("LowerKeyList: %v", err)
			}

			got, err := LiftKeyList(mem, packed)
			if err != nil {
				t.Fatalf("LiftKeyList: %v", err)
			}
			if len(got) != len(tt.keys) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.keys))
			}
			for i := range tt.keys {
				if got[i] != tt.keys[i] {
					t.Errorf("keys[%d] = %q, want %q", i, got[i], tt.keys[i])
				}
			}
		})
	}
}

func TestLowerKeyList_EmptyIsPackedZero(t *testing.T) {
	mem := newMockMemory(64)
	alloc := newMockAllocator(mem)
	scope := NewScope()
	defer scope.FreeAndRelease(alloc)

	packed, err := LowerKeyList(mem, alloc, scope, nil)
	if err != nil {
		t.Fatalf("LowerKeyList: %v", err)
	}
	if packed != 0 {
		t.Errorf("empty list = %d, want packed zero", packed)
	}
	if scope.Count() != 0 {
		t.Errorf("scope tracked %d allocations, want 0", scope.Count())
	}
}

func TestLowerKeyList_PartialFailureStaysScoped(t *testing.T) {
	mem := newMockMemory(8192)
	inner := newMockAllocator(mem)
	// Enough for the pair array and one element, then fail.
	alloc := &failingAllocator{inner: inner, n: 2}
	scope := NewScope()

	_, err := LowerKeyList(mem, alloc, scope, []string{"first", "second", "third"})
	if err == nil {
		t.Fatal("LowerKeyList should fail when the allocator gives out")
	}

	tracked := scope.Count()
	if tracked != 2 {
		t.Errorf("scope tracked %d allocations, want 2", tracked)
	}
	scope.FreeAndRelease(alloc)
	if len(inner.freed) != tracked {
		t.Errorf("freed %d, want %d", len(inner.freed), tracked)
	}
}
