package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type SinkInput struct {
	ID      int
	Volume  int
	AppName string
}

type fade struct {
	id   int
	from int
	to   int
}

// Mixer is the slice of PulseAudio the ducker needs.
type Mixer interface {
	SinkInputs(ctx context.Context) ([]SinkInput, error)
	SetVolume(ctx context.Context, id, percent int) error
}

// Ducker lowers every playback stream except our own while the assistant
// talks, then brings them back.
type Ducker struct {
	mixer  Mixer
	self   []string // application.name values left alone
	factor float64
	floor  int
	fade   time.Duration

	mu       sync.Mutex
	active   bool
	original map[int]int
}

type DuckConfig struct {
	SelfNames []string
	Factor    float64 // target = current * Factor
	Floor     int     // never duck below this percentage
	Fade      time.Duration
}

var DefaultDuck = DuckConfig{
	SelfNames: []string{"espeak-ng", "mitravox"},
	Factor:    0.3,
	Floor:     10,
	Fade:      150 * time.Millisecond,
}

func NewDucker(m Mixer, cfg DuckConfig) *Ducker {
	return &Ducker{
		mixer:    m,
		self:     slices.Clone(cfg.SelfNames),
		factor:   cfg.Factor,
		floor:    clampInt(cfg.Floor, 0, maxVolume),
		fade:     cfg.Fade,
		original: make(map[int]int),
	}
}

func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.mixer.SinkInputs(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	d.original = make(map[int]int)
	var fades []fade

	for _, s := range streams {
		if slices.Contains(d.self, s.AppName) {
			continue
		}

		target := math.Max(float64(s.Volume)*d.factor, float64(d.floor))
		to := clampInt(int(math.Round(target)), 0, maxVolume)

		d.original[s.ID] = s.Volume
		fades = append(fades, fade{id: s.ID, from: s.Volume, to: to})
	}

	d.active = true
	return d.run(ctx, fades)
}

// Restore fades ducked streams back. Streams that appeared after Duck are
// left as they are.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.mixer.SinkInputs(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	var fades []fade
	for _, s := range streams {
		orig, ok := d.original[s.ID]
		if !ok {
			continue
		}
		fades = append(fades, fade{id: s.ID, from: s.Volume, to: orig})
	}

	d.original = make(map[int]int)
	d.active = false

	return d.run(ctx, fades)
}

func (d *Ducker) run(ctx context.Context, fades []fade) error {
	if len(fades) == 0 {
		return nil
	}

	steps := 1
	if d.fade > 0 {
		steps = max(int(d.fade/(10*time.Millisecond)), 1)
	}
	pause := d.fade / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			if err := d.mixer.SetVolume(ctx, f.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", f.id, err)
			}
		}

		if i < steps && pause > 0 {
			time.Sleep(pause)
		}
	}

	return nil
}

// Pactl drives PulseAudio (or PipeWire's pulse server) through pactl.
type Pactl struct{}

func (Pactl) SinkInputs(ctx context.Context) ([]SinkInput, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (Pactl) SetVolume(ctx context.Context, id, percent int) error {
	arg := strconv.Itoa(clampInt(percent, 0, maxVolume)) + "%"
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume", strconv.Itoa(id), arg).Run()
}

// parseSinkInputs reads the first volume and application.name of every
// "Sink Input #N" block.
func parseSinkInputs(text string) []SinkInput {
	blocks := strings.Split(text, "Sink Input #")
	var res []SinkInput

	for _, block := range blocks[1:] {
		header, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			continue
		}

		s := SinkInput{ID: id}
		volSeen := false
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			if !volSeen && strings.HasPrefix(line, "Volume:") {
				if m := percentRe.FindStringSubmatch(line); m != nil {
					s.Volume, _ = strconv.Atoi(m[1])
					volSeen = true
				}
			}

			if s.AppName == "" && strings.HasPrefix(line, "application.name =") {
				_, quoted, _ := strings.Cut(line, `"`)
				s.AppName, _, _ = strings.Cut(quoted, `"`)
			}
		}

		if !volSeen && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}

	return res
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
