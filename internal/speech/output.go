package speech

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"sync"

	"mitravox/internal/lang"
)

// Writer prints what would be spoken.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, prefix: "vox> "}
}

func (s *Writer) Speak(ctx context.Context, _ lang.Code, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := fmt.Fprintf(s.w, "%s%s\n", s.prefix, text)
	return err
}

func (s *Writer) Stop() {}

type Speaker interface {
	Speak(ctx context.Context, c lang.Code, text string) error
	Stop()
}

type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

// Ducking lowers other audio for the duration of each utterance.
type Ducking struct {
	Speaker
	ducker Ducker
}

func NewDucking(s Speaker, d Ducker) *Ducking {
	return &Ducking{Speaker: s, ducker: d}
}

func (d *Ducking) Speak(ctx context.Context, c lang.Code, text string) error {
	if err := d.ducker.Duck(ctx); err != nil {
		log.Warn("Failed to duck other streams", "err", err)
	}
	defer func() {
		if err := d.ducker.Restore(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to restore other streams", "err", err)
		}
	}()

	return d.Speaker.Speak(ctx, c, text)
}
