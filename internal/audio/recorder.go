package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PermissionError is returned when the input device exists but cannot be
// opened by this process.
type PermissionError struct {
	Err error
}

func (e *PermissionError) Error() string          { return "input device access denied: " + e.Err.Error() }
func (e *PermissionError) Unwrap() error          { return e.Err }
func (e *PermissionError) PermissionDenied() bool { return true }

// Recorder captures mono float32 PCM from the default input device. Only one
// recording runs at a time.
type Recorder struct {
	vad VAD
	mu  sync.Mutex
}

func NewRecorder(v VAD) *Recorder { return &Recorder{vad: v} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record returns once the speaker pauses, the length limit is hit or ctx
// is done. It returns nil samples if nobody spoke.
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := make([]float32, r.vad.FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.vad.SampleRate), len(buf), buf)
	if err != nil {
		return nil, openError(err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, openError(err)
	}
	defer stream.Stop()

	d := newDetector(r.vad)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				log.Debug("Input overflowed, frame dropped")
				continue
			}
			return nil, fmt.Errorf("read input stream: %w", err)
		}

		if d.feed(buf) {
			break
		}
	}

	return d.samples(), nil
}

func openError(err error) error {
	if errors.Is(err, portaudio.DeviceUnavailable) {
		return &PermissionError{Err: err}
	}
	return fmt.Errorf("open input stream: %w", err)
}
