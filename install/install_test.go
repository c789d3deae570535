package install

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/storage-bridge/backend"
	"github.com/wippyai/storage-bridge/bridge"
)

type countingBackend struct {
	*backend.Local
	closed int
}

func (c *countingBackend) Close() error {
	c.closed++
	return c.Local.Close()
}

func newRuntime(t *testing.T) (context.Context, wazero.Runtime) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })
	return ctx, rt
}

func TestInstallPublishesModule(t *testing.T) {
	ctx, rt := newRuntime(t)
	ins := New(rt, DefaultOptions())

	bind, err := ins.Install(ctx, backend.NewLocal())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	defer bind.Close(ctx)

	if bind.Name() != DefaultModuleName {
		t.Errorf("Name = %q, want %q", bind.Name(), DefaultModuleName)
	}
	mod := rt.Module(DefaultModuleName)
	if mod == nil {
		t.Fatal("host module not visible in the runtime")
	}
	for _, op := range []string{
		bridge.OpSetItem, bridge.OpGetItem, bridge.OpRemoveItem,
		bridge.OpClear, bridge.OpGetAllKeys, bridge.OpHasKey,
	} {
		if mod.ExportedFunction(op) == nil {
			t.Errorf("export %s missing", op)
		}
	}
}

func TestInstallCustomModuleName(t *testing.T) {
	ctx, rt := newRuntime(t)
	ins := New(rt, Options{ModuleName: "AppStorage"})

	bind, err := ins.Install(ctx, backend.NewLocal())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	defer bind.Close(ctx)

	if rt.Module("AppStorage") == nil {
		t.Error("module not published under the configured name")
	}
	if rt.Module(DefaultModuleName) != nil {
		t.Error("module also published under the default name")
	}
}

func TestInstallNilBackendFatal(t *testing.T) {
	ctx, rt := newRuntime(t)
	ins := New(rt, DefaultOptions())

	if _, err := ins.Install(ctx, nil); err == nil {
		t.Fatal("Install(nil) should have failed")
	}
	if rt.Module(DefaultModuleName) != nil {
		t.Error("failed install still published a module")
	}

	var typedNil *countingBackend
	if _, err := ins.Install(ctx, typedNil); err == nil {
		t.Fatal("Install(typed nil) should have failed")
	}
}

func TestReinstallReplacesBinding(t *testing.T) {
	ctx, rt := newRuntime(t)
	ins := New(rt, DefaultOptions())

	first, err := ins.Install(ctx, backend.NewLocal())
	if err != nil {
		t.Fatalf("first Install: %v", err)
	}
	first.Bridge().Invoke(bridge.OpSetItem, "k", backend.TypeString, "v", false)

	second, err := ins.Install(ctx, backend.NewLocal())
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	defer second.Close(ctx)

	if !first.Bridge().Released() {
		t.Error("replaced binding's backend not released")
	}
	if rt.Module(DefaultModuleName) == nil {
		t.Fatal("module missing after re-install")
	}
	// The replacement starts from its own backend, not the old state.
	if got := second.Bridge().Invoke(bridge.OpHasKey, "k"); got != false {
		t.Errorf("replacement sees old state: %v", got)
	}
}

func TestBindingCloseReleasesOnce(t *testing.T) {
	ctx, rt := newRuntime(t)
	ins := New(rt, DefaultOptions())

	store := &countingBackend{Local: backend.NewLocal()}
	bind, err := ins.Install(ctx, store)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	if err := bind.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bind.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if store.closed != 1 {
		t.Errorf("backend closed %d times, want 1", store.closed)
	}
	if rt.Module(DefaultModuleName) != nil {
		t.Error("module still visible after Close")
	}
	if got := bind.Bridge().Invoke(bridge.OpHasKey, "k"); got != false {
		t.Errorf("call after Close = %v, want false", got)
	}
}

func TestCloseThenReinstall(t *testing.T) {
	ctx, rt := newRuntime(t)
	ins := New(rt, DefaultOptions())

	first, err := ins.Install(ctx, backend.NewLocal())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := first.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := ins.Install(ctx, backend.NewLocal())
	if err != nil {
		t.Fatalf("re-Install: %v", err)
	}
	defer second.Close(ctx)

	if rt.Module(DefaultModuleName) == nil {
		t.Error("module missing after close and re-install")
	}
}
