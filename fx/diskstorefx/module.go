// Package diskstorefx provides an fx module for a disk-backed object store.
// Combined with memofx.Module, every cache gets a blob archive in the store.
package diskstorefx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/memo/internal/store"
	"github.com/discochess/memo/internal/store/diskstore"
)

// Config holds configuration for the disk store.
type Config struct {
	// Root is the directory holding the objects.
	Root string
}

// Module provides a store.Store rooted at Config.Root.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("diskstore",
	fx.Provide(newStore),
)

// Params holds dependencies for creating the store.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

// Result holds the provided store.
type Result struct {
	fx.Out

	Store store.Store
}

func newStore(p Params) (Result, error) {
	st, err := diskstore.New(p.Config.Root)
	if err != nil {
		return Result{}, err
	}
	p.Logger.Debug("disk store opened", zap.String("root", p.Config.Root))

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return st.Close()
		},
	})

	return Result{Store: st}, nil
}
