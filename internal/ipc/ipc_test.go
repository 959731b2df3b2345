package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"mitravox/internal/lang"
	"mitravox/internal/session"
)

type fakeController struct {
	snap session.Snapshot
	taps int
}

func (f *fakeController) Trigger(context.Context) session.Tap {
	f.taps++
	f.snap.Status = session.Listening
	return session.TapStarted
}

func (f *fakeController) SetLanguage(c lang.Code) error {
	f.snap.Language = c
	return nil
}

func (f *fakeController) Snapshot() session.Snapshot { return f.snap }

func serve(t *testing.T, h Handler) string {
	t.Helper()

	// unix socket paths are length limited, keep them short
	path := filepath.Join(t.TempDir(), "v.sock")
	srv, err := Listen(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, h) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
		goleak.VerifyNone(t)
	})
	return path
}

func send(t *testing.T, path string, req Request) Response {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := Send(ctx, path, req)
	require.NoError(t, err)
	return resp
}

func TestRoundTrip(t *testing.T) {
	ctl := &fakeController{snap: session.Snapshot{Status: session.Idle, Language: lang.English}}
	path := serve(t, Dispatch(context.Background(), ctl))

	resp := send(t, path, Request{Cmd: CmdTrigger})
	assert.True(t, resp.OK)
	assert.Equal(t, "started", resp.Tap)
	assert.Equal(t, 1, ctl.taps)

	resp = send(t, path, Request{Cmd: CmdStatus})
	require.True(t, resp.OK)
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, session.Listening, resp.Snapshot.Status)

	resp = send(t, path, Request{Cmd: CmdLang, Arg: "HI"})
	require.True(t, resp.OK)
	assert.Equal(t, lang.Hindi, resp.Snapshot.Language)
}

func TestErrors(t *testing.T) {
	ctl := &fakeController{}
	path := serve(t, Dispatch(context.Background(), ctl))

	resp := send(t, path, Request{Cmd: CmdLang, Arg: "fr"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unsupported language")

	resp = send(t, path, Request{Cmd: "reboot"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown command")

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	_, err = conn.Write([]byte("{not json\n"))
	require.NoError(t, err)
	require.NoError(t, conn.(*net.UnixConn).CloseWrite())

	buf := make([]byte, 512)
	n, _ := conn.Read(buf)
	conn.Close()
	assert.Contains(t, string(buf[:n]), "bad request")
	assert.Zero(t, ctl.taps)
}

func TestSendWithoutDaemon(t *testing.T) {
	_, err := Send(context.Background(), filepath.Join(t.TempDir(), "none.sock"), Request{Cmd: CmdStatus})
	assert.Error(t, err)
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sock")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv, err := Listen(path)
	require.NoError(t, err)
	assert.Equal(t, path, srv.Path())
	srv.ln.Close()
}
