package conn

import (
	"context"
	"encoding/json"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type wsTransport struct {
	c *websocket.Conn
}

// DialWebsocket is the default Dialer.
func DialWebsocket(ctx context.Context, url string) (Transport, error) {
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      http.Header{"User-Agent": []string{"cheese-chess-client"}},
	})
	if err != nil {
		return nil, err
	}
	return &wsTransport{c: c}, nil
}

// Read returns the raw frame. Decoding happens in the manager so a bad frame
// does not close the socket.
func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.c.Read(ctx)
	return data, err
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return wsjson.Write(ctx, t.c, json.RawMessage(data))
}

func (t *wsTransport) Ping(ctx context.Context) error { return t.c.Ping(ctx) }

func (t *wsTransport) Close(code websocket.StatusCode, reason string) error {
	return t.c.Close(code, reason)
}
