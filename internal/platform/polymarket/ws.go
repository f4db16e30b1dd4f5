package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gameverse/tradecore/internal/domain"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// BookHandler is called for each full book snapshot received over the wire.
type BookHandler func(domain.OrderbookSnapshot)

// WSClient is a WebSocket client for the CLOB market channel. It delivers
// full book snapshots for subscribed tokens; one connection per client,
// reconnection is the caller's concern.
type WSClient struct {
	wsURL string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	onBook BookHandler

	done chan struct{}
}

// NewWSClient creates a client for the given market WebSocket endpoint,
// e.g. "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewWSClient(wsURL string, onBook BookHandler) *WSClient {
	return &WSClient{
		wsURL:  wsURL,
		onBook: onBook,
		done:   make(chan struct{}),
	}
}

// Connect dials the endpoint and starts the read and keepalive loops.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("polymarket/ws: client closed")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w", err)
	}
	w.conn = conn

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	go w.readLoop(conn)
	go w.pingLoop(conn)

	return nil
}

// Subscribe subscribes to book snapshots for the given token IDs.
func (w *WSClient) Subscribe(tokenIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}

	cmd := WSCommand{Type: "subscribe", Channel: "book", Assets: tokenIDs}
	w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := w.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("polymarket/ws: subscribe: %w", err)
	}
	return nil
}

// Close tears down the connection and stops the loops.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteWait))
		return w.conn.Close()
	}
	return nil
}

// Done is closed when the read loop exits (disconnect or Close).
func (w *WSClient) Done() <-chan struct{} {
	return w.done
}

func (w *WSClient) readLoop(conn *websocket.Conn) {
	defer func() {
		w.mu.Lock()
		if !w.closed {
			w.closed = true
			close(w.done)
		}
		w.mu.Unlock()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		// The market channel delivers either a single event object or an
		// array of them.
		var frames []json.RawMessage
		if len(raw) > 0 && raw[0] == '[' {
			if err := json.Unmarshal(raw, &frames); err != nil {
				continue
			}
		} else {
			frames = []json.RawMessage{raw}
		}

		for _, frame := range frames {
			var msg WSBookMessage
			if err := json.Unmarshal(frame, &msg); err != nil {
				continue
			}
			if msg.EventType != "book" || msg.AssetID == "" {
				continue
			}
			if w.onBook != nil {
				w.onBook(msg.ToSnapshot())
			}
		}
	}
}

func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
