package audio

import (
	"math"
	"time"
)

// VAD configures the energy based end-of-utterance detection.
type VAD struct {
	SampleRate  int
	FrameSize   int
	SilenceRMS  float64       // frames at or below this are silence
	SilenceHold time.Duration // trailing silence that ends the utterance
	MaxLength   time.Duration
	// LeadTimeout gives up when nobody starts talking; 0 waits up to MaxLength.
	LeadTimeout time.Duration
}

var DefaultVAD = VAD{
	SampleRate:  16000,
	FrameSize:   320, // 20ms
	SilenceRMS:  0.015,
	SilenceHold: 600 * time.Millisecond,
	MaxLength:   10 * time.Second,
	LeadTimeout: 5 * time.Second,
}

func (v VAD) frameDuration() time.Duration {
	return time.Duration(v.FrameSize) * time.Second / time.Duration(v.SampleRate)
}

func (v VAD) maxFrames() int {
	return int(v.MaxLength / v.frameDuration())
}

// detector accumulates speech frames and decides when the utterance is over.
type detector struct {
	vad      VAD
	out      []float32
	speaking bool
	frames   int
	silent   time.Duration
}

func newDetector(v VAD) *detector {
	return &detector{
		vad: v,
		out: make([]float32, 0, v.SampleRate*3),
	}
}

// feed takes one frame and reports whether recording should stop.
func (d *detector) feed(frame []float32) bool {
	d.frames++
	step := d.vad.frameDuration()

	if frameRMS(frame) > d.vad.SilenceRMS {
		d.speaking = true
		d.silent = 0
		d.out = append(d.out, frame...)
	} else if d.speaking {
		d.silent += step
		if d.silent >= d.vad.SilenceHold {
			return true
		}
		d.out = append(d.out, frame...)
	} else if d.vad.LeadTimeout > 0 && time.Duration(d.frames)*step >= d.vad.LeadTimeout {
		return true
	}

	return d.frames >= d.vad.maxFrames()
}

// samples returns the recorded speech; nil when nothing was said.
func (d *detector) samples() []float32 {
	if !d.speaking {
		return nil
	}
	return d.out
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
