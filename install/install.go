package install

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/storage-bridge/backend"
	"github.com/wippyai/storage-bridge/bridge"
	"github.com/wippyai/storage-bridge/errors"
)

// DefaultModuleName is the host module name guests import the bridge under.
const DefaultModuleName = "JSIPureStorage"

// Options configure an Installer.
type Options struct {
	// ModuleName is the name the bridge is published under. Empty means
	// DefaultModuleName.
	ModuleName string
}

// DefaultOptions returns the default installer options.
func DefaultOptions() Options {
	return Options{ModuleName: DefaultModuleName}
}

// Installer publishes storage bridges into a single wazero runtime.
type Installer struct {
	runtime wazero.Runtime
	opts    Options

	mu     sync.Mutex
	active map[string]*Binding
}

// New creates an installer for the given runtime.
func New(rt wazero.Runtime, opts Options) *Installer {
	if opts.ModuleName == "" {
		opts.ModuleName = DefaultModuleName
	}
	return &Installer{
		runtime: rt,
		opts:    opts,
		active:  make(map[string]*Binding),
	}
}

// Install validates store, binds it to a bridge, and publishes the bridge
// operations as exports of a named host module. A previous binding under
// the same name is torn down first. Validation failures are fatal: nothing
// is published and the store is not adopted.
func (ins *Installer) Install(ctx context.Context, store backend.Backend) (*Binding, error) {
	resolved, err := backend.Resolve(store)
	if err != nil {
		return nil, err
	}
	br, err := bridge.New(resolved)
	if err != nil {
		return nil, err
	}

	name := ins.opts.ModuleName

	ins.mu.Lock()
	defer ins.mu.Unlock()

	// Tear down whatever currently answers to the name, ours or not.
	if prev, ok := ins.active[name]; ok {
		delete(ins.active, name)
		if err := prev.teardown(ctx); err != nil {
			Logger().Warn("previous binding teardown",
				zap.String("module", name), zap.Error(err))
		}
	} else if mod := ins.runtime.Module(name); mod != nil {
		_ = mod.Close(ctx)
	}

	builder := ins.runtime.NewHostModuleBuilder(name)
	for _, op := range br.Exports() {
		params, err := bridge.FlattenParams(op.Name, op.Params)
		if err != nil {
			br.Release()
			return nil, err
		}
		results, err := bridge.FlattenResult(op.Name, op.Result)
		if err != nil {
			br.Release()
			return nil, err
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(br.HostFunc(op), params, results).
			Export(op.Name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		br.Release()
		return nil, errors.Registration(errors.PhaseInstall, name, "instantiate", err)
	}

	bind := &Binding{name: name, mod: mod, bridge: br, installer: ins}
	ins.active[name] = bind
	Logger().Debug("bridge installed",
		zap.String("module", name),
		zap.Int("operations", len(br.Exports())))
	return bind, nil
}

// Binding is one published bridge: the host module plus the bridge that
// owns the backend. Closing it unpublishes the module and releases the
// backend exactly once.
type Binding struct {
	name      string
	mod       api.Module
	bridge    *bridge.Bridge
	installer *Installer

	once     sync.Once
	closeErr error
}

// Name returns the host module name the binding is published under.
func (b *Binding) Name() string {
	return b.name
}

// Bridge returns the bridge behind the binding.
func (b *Binding) Bridge() *bridge.Bridge {
	return b.bridge
}

// Close unpublishes the host module and releases the backend. Safe to call
// more than once; later calls return the first result.
func (b *Binding) Close(ctx context.Context) error {
	b.installer.mu.Lock()
	if b.installer.active[b.name] == b {
		delete(b.installer.active, b.name)
	}
	b.installer.mu.Unlock()
	return b.teardown(ctx)
}

// teardown does the actual close without touching the installer registry.
// The installer calls it under its own lock during replacement.
func (b *Binding) teardown(ctx context.Context) error {
	b.once.Do(func() {
		modErr := b.mod.Close(ctx)
		relErr := b.bridge.Release()
		if modErr != nil {
			b.closeErr = modErr
		} else {
			b.closeErr = relErr
		}
		Logger().Debug("bridge uninstalled", zap.String("module", b.name))
	})
	return b.closeErr
}
