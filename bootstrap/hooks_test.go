package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/artpar/erpkit/core/events"
	"github.com/artpar/erpkit/core/modules"
	"github.com/artpar/erpkit/core/registry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterHooks_Audit(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	mods, err := modules.Load()
	require.NoError(t, err)
	reg, err := registry.New(nil, mods...)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := events.NewBus(zerolog.Nop())

	unregister := RegisterHooks(bus, reg, logger)
	assert.True(t, bus.HasSubscribers("nhan_su.created"))

	tests := []struct {
		name   string
		event  events.Event
		level  string
		title  string
		action string
	}{
		{
			name:   "create",
			event:  events.NewEvent("nhan_su", events.ActionCreated, map[string]any{"ho_ten": "An"}, 7),
			level:  "info",
			title:  "Nhân sự",
			action: "created",
		},
		{
			name:   "delete",
			event:  events.NewEvent("phong_ban", events.ActionDeleted, nil, 1, 2),
			level:  "warn",
			title:  "Phòng ban",
			action: "deleted",
		},
		{
			name:   "unknown module uses name",
			event:  events.NewEvent("kho", events.ActionUpdated, nil, 3),
			level:  "info",
			title:  "kho",
			action: "updated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			bus.Publish(context.Background(), tt.event)

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.level, line["level"])
			assert.Equal(t, "audit", line["component"])
			assert.Equal(t, tt.event.Module, line["module"])
			assert.Equal(t, tt.title, line["title"])
			assert.Equal(t, tt.action, line["action"])
			assert.Len(t, line["ids"], len(tt.event.IDs))
		})
	}

	unregister()
	assert.False(t, bus.HasSubscribers("nhan_su.created"))
}
