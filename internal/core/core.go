// Package core implements the chat delivery semantics: room membership,
// message dispatch, presence, typing and group administration. All
// durable state goes through the store; all transient connection state
// lives in the registry.
package core

import (
	"log/slog"

	"chatcore/internal/registry"
	"chatcore/internal/store"
)

type Core struct {
	store  store.Store
	reg    *registry.Registry
	logger *slog.Logger
}

func New(st store.Store, reg *registry.Registry, logger *slog.Logger) *Core {
	return &Core{
		store:  st,
		reg:    reg,
		logger: logger.With(slog.String("component", "core")),
	}
}

// Registry exposes the connection registry to the server layer for
// lifecycle wiring and the connection limiter.
func (c *Core) Registry() *registry.Registry { return c.reg }
