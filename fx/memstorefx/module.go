// Package memstorefx provides an fx module for an in-memory object store.
// Useful for testing.
package memstorefx

import (
	"context"

	"go.uber.org/fx"

	"github.com/discochess/memo/internal/store"
	"github.com/discochess/memo/internal/store/memstore"
)

// Module provides an in-memory store.Store, and the concrete
// *memstore.Store for test setup.
var Module = fx.Module("memstore",
	fx.Provide(newStore),
)

// Params holds dependencies for creating the store.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
}

// Result holds the provided store.
type Result struct {
	fx.Out

	Store    store.Store
	MemStore *memstore.Store // Exposed for test setup
}

func newStore(p Params) Result {
	st := memstore.New()
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return st.Close()
		},
	})
	return Result{Store: st, MemStore: st}
}
