package bootstrap

import (
	"context"

	"github.com/artpar/erpkit/core/events"
	"github.com/artpar/erpkit/core/registry"
	"github.com/rs/zerolog"
)

// RegisterHooks subscribes the application observers to the event bus.
// It returns a function that removes them.
func RegisterHooks(bus *events.Bus, reg *registry.Registry, logger zerolog.Logger) (unregister func()) {
	audit := bus.Subscribe("*", auditHook(reg, logger))

	logger.Debug().Msg("module hooks registered")
	return audit
}

// auditHook writes one log line per record mutation.
func auditHook(reg *registry.Registry, logger zerolog.Logger) events.Handler {
	log := logger.With().Str("component", "audit").Logger()
	return func(_ context.Context, ev events.Event) error {
		entry := log.Info()
		if ev.Action == events.ActionDeleted {
			entry = log.Warn()
		}
		entry.
			Str("module", ev.Module).
			Str("title", reg.Title(ev.Module)).
			Str("action", ev.Action).
			Ints64("ids", ev.IDs).
			Msg("record " + ev.Action)
		return nil
	}
}
