package nav

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mitravox/internal/intent"
	"mitravox/internal/lang"
	"mitravox/internal/session"
	"mitravox/pkg/protocol"
)

type recorder struct {
	sent []protocol.Message
	err  error
}

func (r *recorder) Transmit(m protocol.Message) error {
	if r.err != nil {
		return r.err
	}
	m.From = VoxShard
	r.sent = append(r.sent, m)
	return nil
}

type fakeController struct {
	tap   session.Tap
	taps  int
	lang  lang.Code
	state session.Status
}

func (f *fakeController) Trigger(context.Context) session.Tap {
	f.taps++
	return f.tap
}

func (f *fakeController) SetLanguage(c lang.Code) error {
	f.lang = c
	return nil
}

func (f *fakeController) Snapshot() session.Snapshot {
	return session.Snapshot{Status: f.state, Language: f.lang}
}

func TestBusNavigateFrame(t *testing.T) {
	rec := &recorder{}
	weather, ok := intent.DefaultTable().Target("weather")
	require.True(t, ok)

	require.NoError(t, NewBus(rec).Navigate(context.Background(), weather))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "UI:OPEN:SCREEN:weather:VOX", rec.sent[0].String())
}

func TestBusNavigateErrors(t *testing.T) {
	target := intent.Target{ID: "news"}

	rec := &recorder{err: errors.New("socket gone")}
	err := NewBus(rec).Navigate(context.Background(), target)
	assert.ErrorContains(t, err, "open news")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewBus(&recorder{}).Navigate(ctx, target), context.Canceled)
}

func TestHandlerTap(t *testing.T) {
	rec := &recorder{}
	ctl := &fakeController{tap: session.TapStarted}
	h := Handler(context.Background(), ctl, rec)

	m, err := protocol.Parse("VOX:TAP:MIC:UI")
	require.NoError(t, err)
	h(m)

	assert.Equal(t, 1, ctl.taps)
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "UI:OK:TAP:started:VOX", rec.sent[0].String())
}

func TestHandlerLanguage(t *testing.T) {
	rec := &recorder{}
	ctl := &fakeController{lang: lang.English}
	h := Handler(context.Background(), ctl, rec)

	m, err := protocol.Parse("VOX:LANG:SET:te:UI")
	require.NoError(t, err)
	h(m)
	assert.Equal(t, lang.Telugu, ctl.lang)

	m, err = protocol.Parse("VOX:LANG:SET:fr:UI")
	require.NoError(t, err)
	h(m)
	assert.Equal(t, lang.Telugu, ctl.lang)

	require.Len(t, rec.sent, 2)
	assert.Equal(t, "UI:OK:LANG:te:VOX", rec.sent[0].String())
	assert.Equal(t, "UI:ERR:LANG:fr:VOX", rec.sent[1].String())
}

func TestHandlerStatusAndUnknown(t *testing.T) {
	rec := &recorder{}
	ctl := &fakeController{lang: lang.Hindi, state: session.Speaking}
	h := Handler(context.Background(), ctl, rec)

	m, err := protocol.Parse("VOX:STATUS:GET:UI")
	require.NoError(t, err)
	h(m)

	m, err = protocol.Parse("VOX:FLY:AWAY:UI")
	require.NoError(t, err)
	h(m)

	require.Len(t, rec.sent, 2)
	assert.Equal(t, "UI:OK:STATUS:speaking:hi:VOX", rec.sent[0].String())
	assert.Equal(t, "UI:ERR:UNKNOWN:VOX", rec.sent[1].String())
	assert.Zero(t, ctl.taps)
}
