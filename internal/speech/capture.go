// Package speech adapts recorders, recognizers and synthesizers to the
// session controller's Capturer and Speaker ports.
package speech

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"sync"
	"time"

	"mitravox/internal/lang"
)

// TranscribeTimeout bounds one recognition pass.
const TranscribeTimeout = 60 * time.Second

type Recorder interface {
	Record(ctx context.Context) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32, language string) (string, error)
}

// Cue is the earcon played when listening starts.
type Cue interface {
	Play() error
}

// Mic listens on the default input device and transcribes what it heard.
type Mic struct {
	rec Recorder
	tr  Transcriber
	cue Cue
}

func NewMic(rec Recorder, tr Transcriber, cue Cue) *Mic {
	return &Mic{rec: rec, tr: tr, cue: cue}
}

func (m *Mic) Listen(ctx context.Context, c lang.Code) (string, error) {
	if m.cue != nil {
		if err := m.cue.Play(); err != nil {
			log.Warn("Failed to play cue", "err", err)
		}
	}

	pcm, err := m.rec.Record(ctx)
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}

	log.Debug("Recorded", "samples", len(pcm))
	if len(pcm) == 0 {
		return "", nil
	}

	return transcribe(ctx, m.tr, pcm, c)
}

// Decoder turns an audio file into 16 kHz mono PCM.
type Decoder func(ctx context.Context, path string) ([]float32, error)

// File "listens" to a recorded audio file.
type File struct {
	path   string
	decode Decoder
	tr     Transcriber
}

func NewFile(path string, decode Decoder, tr Transcriber) *File {
	return &File{path: path, decode: decode, tr: tr}
}

func (f *File) Listen(ctx context.Context, c lang.Code) (string, error) {
	pcm, err := f.decode(ctx, f.path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(pcm) == 0 {
		return "", nil
	}
	return transcribe(ctx, f.tr, pcm, c)
}

func transcribe(ctx context.Context, tr Transcriber, pcm []float32, c lang.Code) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, TranscribeTimeout)
	defer cancel()

	text, err := tr.Transcribe(ctx, pcm, whisperLanguage(c))
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return text, nil
}

// whisper uses ISO 639-1 codes, same as the UI.
func whisperLanguage(c lang.Code) string {
	if c.Valid() {
		return c.String()
	}
	return "auto"
}

// Lines takes each line of r as one transcript. Used by the console runner
// and for typed input in place of a microphone.
type Lines struct {
	once  sync.Once
	r     io.Reader
	lines chan string
	err   error
}

func NewLines(r io.Reader) *Lines {
	return &Lines{r: r, lines: make(chan string)}
}

func (l *Lines) Listen(ctx context.Context, _ lang.Code) (string, error) {
	l.once.Do(func() { go l.scan() })

	select {
	case line, ok := <-l.lines:
		if !ok {
			if l.err != nil {
				return "", l.err
			}
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *Lines) scan() {
	sc := bufio.NewScanner(l.r)
	for sc.Scan() {
		l.lines <- sc.Text()
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		l.err = fmt.Errorf("read input: %w", err)
	}
	close(l.lines)
}
