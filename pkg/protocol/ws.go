package protocol

import (
	"context"
	"errors"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

type WebSocket struct {
	url    string
	reconn time.Duration

	mu   sync.Mutex // guards conn and serializes writes
	conn *ws.Conn
}

func DialWebSocket(ctx context.Context, url string, reconn time.Duration) (*WebSocket, error) {
	log.Debug("Dialing websocket", "url", url)

	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	return &WebSocket{url: url, reconn: reconn, conn: conn}, nil
}

func (web *WebSocket) Write(payload []byte) error {
	web.mu.Lock()
	defer web.mu.Unlock()

	log.Debug("Write ws", "msg", string(payload))
	return web.conn.WriteMessage(ws.TextMessage, payload)
}

type incomeKind uint8

const (
	connClosed incomeKind = iota
	readFailed
	readOK
)

type income struct {
	kind incomeKind
	msg  []byte
	err  error
}

func (web *WebSocket) read() income {
	web.mu.Lock()
	conn := web.conn
	web.mu.Unlock()

	_, msg, err := conn.ReadMessage()
	switch {
	case err == nil:
		log.Debug("Read ws", "msg", string(msg))
		return income{kind: readOK, msg: msg}
	case isClosed(err):
		return income{kind: connClosed, err: err}
	default:
		return income{kind: readFailed, err: err}
	}
}

// reconnect redials until it succeeds or ctx is done.
func (web *WebSocket) reconnect(ctx context.Context) error {
	for {
		conn, _, err := ws.DefaultDialer.DialContext(ctx, web.url, nil)
		if err == nil {
			web.mu.Lock()
			web.conn.Close()
			web.conn = conn
			web.mu.Unlock()
			return nil
		}

		log.Debug("Redial failed", "url", web.url, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(web.reconn):
		}
	}
}

func (web *WebSocket) Close() error {
	web.mu.Lock()
	defer web.mu.Unlock()

	_ = web.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return web.conn.Close()
}

func isClosed(err error) bool {
	var ce *ws.CloseError
	return errors.As(err, &ce) || errors.Is(err, ws.ErrCloseSent)
}
