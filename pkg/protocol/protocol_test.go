package protocol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	msg, err := Parse("UI:open:screen:crop-prices:VOX")
	require.NoError(t, err)
	assert.Equal(t, "UI", msg.To)
	assert.Equal(t, "OPEN", msg.Verb)
	assert.Equal(t, "SCREEN", msg.Noun)
	assert.Equal(t, []string{"crop-prices"}, msg.Args)
	assert.Equal(t, "VOX", msg.From)
	assert.Equal(t, "UI:OPEN:SCREEN:crop-prices:VOX", msg.String())

	msg, err = Parse("VOX:TAP:MIC:UI")
	require.NoError(t, err)
	assert.Empty(t, msg.Args)

	for _, bad := range []string{
		"",
		"VOX:TAP:UI",
		"VOX:TAP MIC:x:UI",
		"VOX:TAP:MIC:a/b:UI",
		"VOX:TAP::UI",
	} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestReply(t *testing.T) {
	msg, err := Parse("VOX:LANG:SET:hi:UI")
	require.NoError(t, err)

	r := msg.Reply(false, "LANG", "xx")
	assert.Equal(t, "UI", r.To)
	assert.Equal(t, "ERR", r.Verb)
	assert.Equal(t, "LANG", r.Noun)
}

// echoServer forwards every frame it receives to got and sends each entry of
// push after the first frame arrives.
func echoServer(t *testing.T, got chan<- string, push ...string) string {
	t.Helper()

	up := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		first := true
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			got <- string(msg)
			if first {
				first = false
				for _, p := range push {
					if err := conn.WriteMessage(ws.TextMessage, []byte(p)); err != nil {
						return
					}
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestTransmitAndDispatch(t *testing.T) {
	got := make(chan string, 4)
	url := echoServer(t, got, "OTHER:TAP:MIC:UI", "not a frame", "VOX:TAP:MIC:UI")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbound := make(chan *Message, 1)
	p, err := New(ctx, Config{
		Shard:     "VOX",
		URL:       url,
		OnMessage: func(m *Message) { inbound <- m },
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.NoError(t, p.Transmit(Message{To: "UI", Verb: "OPEN", Noun: "SCREEN", Args: []string{"weather"}}))

	select {
	case frame := <-got:
		assert.Equal(t, "UI:OPEN:SCREEN:weather:VOX", frame)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}

	select {
	case m := <-inbound:
		assert.Equal(t, "TAP", m.Verb)
		assert.Equal(t, "UI", m.From)
	case <-time.After(2 * time.Second):
		t.Fatal("inbound frame was not dispatched")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTransmitRejectsBadArgs(t *testing.T) {
	got := make(chan string, 1)
	url := echoServer(t, got)

	p, err := New(context.Background(), Config{Shard: "VOX", URL: url})
	require.NoError(t, err)
	defer p.Close()

	err = p.Transmit(Message{To: "UI", Verb: "OPEN", Noun: "SCREEN", Args: []string{"two words"}})
	assert.Error(t, err)
}

func TestNewRejectsBadShard(t *testing.T) {
	_, err := New(context.Background(), Config{Shard: "V:X", URL: "ws://127.0.0.1:1"})
	assert.Error(t, err)
}
