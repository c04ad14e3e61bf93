package transport

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/hashicorp/yamux"
)

// Connector dials a single control connection to a host and tears it down
// again. Grounded on the teacher's TunnelClient.Connect/TunnelManager.Remove
// pair (dial over WebSocket, wrap in a yamux session).
type Connector interface {
	Connect(ctx context.Context, host string, protocolVersion int) (*Connection, error)
	Close(host string, conn *Connection)
}

// WSConnector dials <Scheme>://host/cql (ws:// unless Scheme says otherwise)
// and negotiates a yamux client session
// over the resulting WebSocket byte stream. The protocol version is sent as
// a request header so a server that only understands older versions can
// reject the dial with CodeProtocolError before any bytes are multiplexed.
type WSConnector struct {
	// Scheme is "ws" or "wss"; defaults to "ws" when empty (tests run
	// without TLS).
	Scheme string
}

func (w *WSConnector) Connect(ctx context.Context, host string, protocolVersion int) (*Connection, error) {
	scheme := w.Scheme
	if scheme == "" {
		scheme = "ws"
	}

	header := http.Header{}
	header.Set("X-Protocol-Version", strconv.Itoa(protocolVersion))

	wsConn, resp, err := websocket.Dial(ctx, fmt.Sprintf("%s://%s/cql", scheme, host), &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUpgradeRequired {
			return nil, &QueryError{Code: CodeProtocolError, Message: "server rejected protocol version " + strconv.Itoa(protocolVersion)}
		}
		return nil, fmt.Errorf("websocket dial to %s: %w", host, err)
	}

	netConn := websocket.NetConn(ctx, wsConn, websocket.MessageBinary)

	session, err := yamux.Client(netConn, nil)
	if err != nil {
		wsConn.CloseNow()
		return nil, fmt.Errorf("yamux client init: %w", err)
	}

	return NewConnection(host, session), nil
}

func (w *WSConnector) Close(host string, conn *Connection) {
	if conn == nil {
		return
	}
	conn.Close()
}
