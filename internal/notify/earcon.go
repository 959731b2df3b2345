// Package notify gives user feedback outside of speech: the listening
// earcon and toast messages.
package notify

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Earcon is a short sound decoded once and replayed on every Play.
type Earcon struct {
	buf    *beep.Buffer
	format beep.Format

	once    sync.Once
	initErr error
}

func LoadEarcon(path string) (*Earcon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open earcon: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode earcon %s: %w", path, err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)

	return &Earcon{buf: buf, format: format}, nil
}

// Play blocks until the sound has finished so that it is not recorded as
// part of the utterance.
func (e *Earcon) Play() error {
	e.once.Do(func() {
		e.initErr = speaker.Init(e.format.SampleRate, e.format.SampleRate.N(time.Second/10))
	})
	if e.initErr != nil {
		return fmt.Errorf("init speaker: %w", e.initErr)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(e.buf.Streamer(0, e.buf.Len()), beep.Callback(func() {
		close(done)
	})))
	<-done

	return nil
}
