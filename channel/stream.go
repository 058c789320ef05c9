// Package channel owns the persistent duplex connections to the order
// backend: a global channel that lives for the logged-in session and a
// ticket channel that lives for one chat view. Server pushes arrive as
// JSON-RPC 2.0 notifications over a websocket.
package channel

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/coder/websocket"
	"github.com/sourcegraph/jsonrpc2"
)

// Dialer opens one duplex object stream to the backend. Implementations
// other than WebSocketDialer exist only for tests.
type Dialer interface {
	Dial(ctx context.Context) (jsonrpc2.ObjectStream, error)
}

// WebSocketDialer connects to the backend's websocket endpoint.
type WebSocketDialer struct {
	URL string
}

func (d *WebSocketDialer) Dial(ctx context.Context) (jsonrpc2.ObjectStream, error) {
	conn, _, err := websocket.Dial(ctx, d.URL, nil)
	if err != nil {
		return nil, err
	}
	return newWebSocketStream(conn), nil
}

// webSocketStream adapts coder/websocket to jsonrpc2.ObjectStream.
type webSocketStream struct {
	conn *websocket.Conn
	mu   sync.Mutex // protects writes
}

func newWebSocketStream(conn *websocket.Conn) *webSocketStream {
	return &webSocketStream{conn: conn}
}

func (s *webSocketStream) ReadObject(v interface{}) error {
	_, data, err := s.conn.Read(context.Background())
	if err != nil {
		// Treat normal close frames as EOF so jsonrpc2 shuts down gracefully
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return io.EOF
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *webSocketStream) WriteObject(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(context.Background(), websocket.MessageText, data)
}

func (s *webSocketStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

var _ jsonrpc2.ObjectStream = (*webSocketStream)(nil)
