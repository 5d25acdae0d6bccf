package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"beacon/internal/token"

	"github.com/coder/websocket"
)

const (
	gwDefaultSendQueueSize = 64
	gwDefaultWriteTimeout  = 5 * time.Second
	gwHandshakeTimeout     = 2 * time.Second
	gwMaxFrameBytes        = 16 << 10 // 16 KiB; channels carry small JSON events
)

// Gateway is the WebSocket entrypoint for notification channels.
//
// The bearer token arrives as a connection parameter ("?token=...") because
// browsers cannot set headers on the WebSocket handshake. An invalid or
// missing token closes the connection with a policy-violation status before
// the channel is registered.
type Gateway struct {
	log      *slog.Logger
	issuer   *token.Issuer
	registry *Registry

	writeTimeout  time.Duration
	sendQueueSize int
}

// NewGateway constructs a Gateway with default timeouts.
func NewGateway(log *slog.Logger, issuer *token.Issuer, registry *Registry) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		log:           log,
		issuer:        issuer,
		registry:      registry,
		writeTimeout:  gwDefaultWriteTimeout,
		sendQueueSize: gwDefaultSendQueueSize,
	}
}

// ServeHTTP adapter so the gateway can be mounted as an http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS upgrades the request and runs the channel lifecycle.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	conn.SetReadLimit(gwMaxFrameBytes)

	raw := strings.TrimSpace(r.URL.Query().Get("token"))
	if raw == "" {
		g.log.Info("ws.reject.token", "reason", "missing", "remote", r.RemoteAddr)
		_ = conn.Close(websocket.StatusPolicyViolation, "token missing")
		return
	}
	if !g.issuer.Validate(raw) {
		g.log.Info("ws.reject.token", "reason", "invalid", "remote", r.RemoteAddr)
		_ = conn.Close(websocket.StatusPolicyViolation, "invalid token")
		return
	}
	accountID, err := g.issuer.Subject(raw)
	if err != nil {
		g.log.Info("ws.reject.token", "reason", "subject", "remote", r.RemoteAddr)
		_ = conn.Close(websocket.StatusPolicyViolation, "invalid token")
		return
	}

	ch := NewChannel(g.sendQueueSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// shutdown is idempotent and runs on every exit path, graceful or not,
	// so Remove is guaranteed for each registered channel.
	var closeOnce sync.Once
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.registry.Remove(accountID, ch)
			ch.Close()
			_ = conn.Close(code, reason)
			cancel()
		})
	}
	defer shutdown(websocket.StatusNormalClosure, "bye")

	g.registry.Register(accountID, ch)
	g.log.Info("ws.connect", "account_id", accountID, "channel_id", ch.ID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ch.Done():
				return
			case msg := <-ch.Outbox():
				if err := g.write(ctx, conn, msg); err != nil {
					g.log.Info("ws.write.fail", "channel_id", ch.ID, "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	welcome, _ := json.Marshal(Event{
		Type:    EventConnected,
		Message: "notification channel established",
	})
	if !ch.TrySendTimeout(welcome, gwHandshakeTimeout) {
		shutdown(websocket.StatusAbnormalClosure, "handshake backpressure")
		<-writerDone
		return
	}

	for {
		mt, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				shutdown(websocket.StatusNormalClosure, "peer closed")
			} else {
				shutdown(websocket.StatusAbnormalClosure, "read failed")
			}
			break
		}
		if mt != websocket.MessageText {
			continue
		}

		// Echo inbound frames unchanged; clients use this as keep-alive.
		if !ch.TrySend(data) {
			shutdown(websocket.StatusPolicyViolation, "backpressure")
			break
		}
	}

	<-writerDone
	g.log.Info("ws.disconnect", "account_id", accountID, "channel_id", ch.ID)
}

func (g *Gateway) write(parent context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(parent, g.writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}
