package notify

import (
	"context"
	log "log/slog"

	"mitravox/internal/lang"
	"mitravox/internal/session"
)

type Shower interface {
	Show(ctx context.Context, msg string) error
}

// OnListening is a session observer that pops the localized "Listening..."
// toast. The toast is shown in the background; the tap that caused it does
// not wait for the notification daemon.
func OnListening(ctx context.Context, s Shower) func(session.Snapshot) {
	return func(snap session.Snapshot) {
		if snap.Status != session.Listening {
			return
		}

		msg := lang.For(snap.Language).Listening
		go func() {
			if err := s.Show(ctx, msg); err != nil {
				log.Debug("Failed to show listening toast", "err", err)
			}
		}()
	}
}
