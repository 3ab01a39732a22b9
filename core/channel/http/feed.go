package http

import (
	"context"
	"net/http"
	"time"

	"github.com/artpar/erpkit/core/events"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	feedBuffer       = 64
	feedWriteTimeout = 5 * time.Second
)

// changeMessage tells a client which records to refetch.
type changeMessage struct {
	Module string  `json:"module"`
	Action string  `json:"action"`
	IDs    []int64 `json:"ids,omitempty"`
}

// handleChanges handles GET /ws/changes[?module=]. Every mutation event of
// the module, or of all modules, is pushed to the client as JSON. Clients
// that fall behind lose messages and should refetch.
func (c *Channel) handleChanges(w http.ResponseWriter, r *http.Request) {
	pattern := "*"
	if mod := r.URL.Query().Get("module"); mod != "" {
		if _, err := c.registry.Lookup(mod); err != nil {
			writeError(w, err, http.StatusNotFound)
			return
		}
		pattern = mod + ".*"
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	if c.metrics != nil {
		c.metrics.AddFeedClients(1)
		defer c.metrics.AddFeedClients(-1)
	}

	// The feed is write-only; CloseRead handles pings and reports the close.
	ctx := conn.CloseRead(r.Context())

	queue := make(chan changeMessage, feedBuffer)
	unsubscribe := c.bus.Subscribe(pattern, func(_ context.Context, ev events.Event) error {
		select {
		case queue <- changeMessage{Module: ev.Module, Action: ev.Action, IDs: ev.IDs}:
		default:
			c.logger.Debug().Str("event", ev.Name).Msg("change feed client behind, dropping event")
		}
		return nil
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg := <-queue:
			wctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
			err := wsjson.Write(wctx, conn, msg)
			cancel()
			if err != nil {
				c.logger.Debug().Err(err).Msg("change feed write failed")
				return
			}
		}
	}
}
