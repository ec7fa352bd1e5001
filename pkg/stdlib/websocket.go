package stdlib

import (
	"fmt"

	"github.com/gorilla/websocket"

	"sona/pkg/eval"
)

const wsHandle = "websocket"

var websocketBridges = []registration{
	{"__native__ws_dial", 1, wsDial},
	{"__native__ws_send", 2, wsSend},
	{"__native__ws_read", 1, wsRead},
	{"__native__ws_close", 1, wsClose},
}

func newConnection(conn *websocket.Conn) *eval.Native {
	return &eval.Native{Type: wsHandle, Value: conn}
}

func wsDial(args ...eval.Object) (eval.Object, error) {
	url, err := stringArg(args, 0, "url")
	if err != nil {
		return nil, err
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newConnection(conn), nil
}

func wsSend(args ...eval.Object) (eval.Object, error) {
	conn, err := nativeArg[*websocket.Conn](args, 0, wsHandle)
	if err != nil {
		return nil, err
	}
	msg, err := stringArg(args, 1, "message")
	if err != nil {
		return nil, err
	}
	return eval.NULL, conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// wsRead blocks for the next message. A closed connection reads as null.
func wsRead(args ...eval.Object) (eval.Object, error) {
	conn, err := nativeArg[*websocket.Conn](args, 0, wsHandle)
	if err != nil {
		return nil, err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return eval.NULL, nil
		}
		return nil, err
	}
	return eval.NewString(string(data)), nil
}

func wsClose(args ...eval.Object) (eval.Object, error) {
	conn, err := nativeArg[*websocket.Conn](args, 0, wsHandle)
	if err != nil {
		return nil, err
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
	return eval.NULL, conn.Close()
}
