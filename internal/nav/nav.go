// Package nav opens app screens for resolved intents and takes mic taps
// from the UI over the bus.
package nav

import (
	"context"
	"fmt"
	log "log/slog"

	"mitravox/internal/intent"
	"mitravox/internal/lang"
	"mitravox/internal/session"
	"mitravox/pkg/protocol"
)

const (
	UIShard  = "UI"
	VoxShard = "VOX"
)

type Transmitter interface {
	Transmit(m protocol.Message) error
}

// Bus asks the UI shard to open a screen: UI:OPEN:SCREEN:<target-id>:VOX.
type Bus struct {
	tx Transmitter
}

func NewBus(tx Transmitter) *Bus {
	return &Bus{tx: tx}
}

func (b *Bus) Navigate(ctx context.Context, t intent.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.tx.Transmit(protocol.Message{
		To:   UIShard,
		Verb: "OPEN",
		Noun: "SCREEN",
		Args: []string{t.ID},
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", t.ID, err)
	}
	return nil
}

// Log only records where the user would have been taken.
type Log struct {
	Logger *log.Logger
}

func (l Log) Navigate(_ context.Context, t intent.Target) error {
	lg := l.Logger
	if lg == nil {
		lg = log.Default()
	}
	lg.Info("Navigate", "target", t.ID, "path", t.Path)
	return nil
}

// Controller is the part of session.Controller the bus drives.
type Controller interface {
	Trigger(ctx context.Context) session.Tap
	SetLanguage(c lang.Code) error
	Snapshot() session.Snapshot
}

// Handler answers bus frames addressed to the assistant:
//
//	VOX:TAP:MIC:<from>        -> <from>:OK:TAP:<started|stopped|ignored>:VOX
//	VOX:LANG:SET:<code>:<from> -> <from>:OK:LANG:<code>:VOX
//	VOX:STATUS:GET:<from>      -> <from>:OK:STATUS:<status>:<lang>:VOX
//
// Anything else gets <from>:ERR:UNKNOWN:VOX.
func Handler(ctx context.Context, ctl Controller, tx Transmitter) func(*protocol.Message) {
	return func(m *protocol.Message) {
		reply := handle(ctx, ctl, m)
		if err := tx.Transmit(reply); err != nil {
			log.Error("Failed to reply", "to", m.From, "err", err)
		}
	}
}

func handle(ctx context.Context, ctl Controller, m *protocol.Message) protocol.Message {
	switch {
	case m.Verb == "TAP" && m.Noun == "MIC":
		tap := ctl.Trigger(ctx)
		log.Info("Mic tap from bus", "from", m.From, "tap", tap)
		return m.Reply(true, "TAP", tap.String())

	case m.Verb == "LANG" && m.Noun == "SET" && len(m.Args) == 1:
		c, err := lang.Parse(m.Args[0])
		if err == nil {
			err = ctl.SetLanguage(c)
		}
		if err != nil {
			log.Warn("Rejected language", "arg", m.Args[0], "err", err)
			return m.Reply(false, "LANG", m.Args[0])
		}
		return m.Reply(true, "LANG", c.String())

	case m.Verb == "STATUS" && m.Noun == "GET":
		snap := ctl.Snapshot()
		return m.Reply(true, "STATUS", snap.Status.String(), snap.Language.String())

	default:
		log.Warn("Unknown bus command", "msg", m.String())
		return m.Reply(false, "UNKNOWN")
	}
}
