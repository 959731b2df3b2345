// Package session runs one voice interaction per mic tap:
//
//	Idle -> Listening -> Thinking -> Speaking -> Idle
//
// A tap while Speaking stops playback and returns to Idle. A tap while
// Listening or Thinking is ignored. Any failure ends in Idle.
package session

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"

	"mitravox/internal/answer"
	"mitravox/internal/intent"
	"mitravox/internal/lang"
	"mitravox/internal/metrics"
)

// Capturer records one utterance and returns its transcript.
type Capturer interface {
	Listen(ctx context.Context, c lang.Code) (string, error)
}

// Speaker plays text aloud. Speak blocks until playback ends or ctx is
// done; Stop halts playback immediately and drops anything buffered.
// Stop runs under the controller lock and must not call back into it.
type Speaker interface {
	Speak(ctx context.Context, c lang.Code, text string) error
	Stop()
}

type Navigator interface {
	Navigate(ctx context.Context, t intent.Target) error
}

type Notifier interface {
	Notify(ctx context.Context, t Toast) error
}

type Deps struct {
	Capture  Capturer
	Speech   Speaker
	Answer   answer.Answerer
	Navigate Navigator
	Notify   Notifier
	Resolver *intent.Resolver
}

type Option func(*Controller)

func WithLanguage(c lang.Code) Option {
	return func(ctl *Controller) { ctl.snap.Language = c }
}

func WithLogger(lg *log.Logger) Option {
	return func(ctl *Controller) { ctl.logger = lg }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(ctl *Controller) { ctl.metrics = m }
}

// WithObserver registers fn to receive a snapshot on every status change.
// fn runs on the goroutine that made the change, outside the controller
// lock; it may call back into the controller. A Listening snapshot is
// published from Trigger, so fn should not block.
func WithObserver(fn func(Snapshot)) Option {
	return func(ctl *Controller) { ctl.observe = fn }
}

// Controller owns the microphone and the speech engine of one screen.
type Controller struct {
	deps    Deps
	logger  *log.Logger
	metrics *metrics.Metrics
	observe func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	snap         Snapshot
	gen          uint64
	stopSpeaking context.CancelFunc
	closed       bool
}

func New(deps Deps, opts ...Option) *Controller {
	ctl := &Controller{
		deps:   deps,
		logger: log.Default(),
		snap:   Snapshot{Status: Idle, Language: lang.English},
	}
	for _, o := range opts {
		o(ctl)
	}

	ctl.ctx, ctl.cancel = context.WithCancel(context.Background())
	ctl.metrics.Status(Idle.String())

	return ctl
}

func (ctl *Controller) Snapshot() Snapshot {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.snap
}

func (ctl *Controller) Status() Status {
	return ctl.Snapshot().Status
}

// SetLanguage switches the language used from the next interaction on.
func (ctl *Controller) SetLanguage(c lang.Code) error {
	if !c.Valid() {
		_, err := lang.Parse(string(c))
		return err
	}

	ctl.mu.Lock()
	ctl.snap.Language = c
	ctl.mu.Unlock()

	return nil
}

// Trigger handles one tap on the mic button and returns without waiting
// for the interaction to finish. ctx bounds the interaction it starts.
func (ctl *Controller) Trigger(ctx context.Context) Tap {
	ctl.mu.Lock()

	if ctl.closed {
		ctl.mu.Unlock()
		ctl.metrics.Tap(TapIgnored.String())
		return TapIgnored
	}

	switch ctl.snap.Status {
	case Speaking:
		ctl.gen++
		if ctl.stopSpeaking != nil {
			ctl.stopSpeaking()
			ctl.stopSpeaking = nil
		}
		// no new run may reach the engine before this stop lands
		ctl.deps.Speech.Stop()
		ctl.snap.Status = Idle
		snap := ctl.snap
		ctl.mu.Unlock()

		ctl.logger.Info("Stopped speaking")
		ctl.metrics.Run("stopped")
		ctl.metrics.Tap(TapStopped.String())
		ctl.publish(snap)
		return TapStopped

	case Idle:
		ctl.gen++
		gen := ctl.gen
		c := ctl.snap.Language
		ctl.snap.Status = Listening
		snap := ctl.snap

		runCtx, cancel := context.WithCancel(ctx)
		stop := context.AfterFunc(ctl.ctx, cancel)
		ctl.wg.Add(1)
		ctl.mu.Unlock()

		ctl.metrics.Tap(TapStarted.String())
		ctl.publish(snap)

		go func() {
			defer ctl.wg.Done()
			defer stop()
			defer cancel()
			ctl.run(runCtx, gen, c)
		}()
		return TapStarted

	default:
		status := ctl.snap.Status
		ctl.mu.Unlock()

		ctl.logger.Debug("Ignoring tap", "status", status)
		ctl.metrics.Tap(TapIgnored.String())
		return TapIgnored
	}
}

// Wait blocks until the running interaction and its navigation finish.
// It must not race with a Trigger that starts a new interaction.
func (ctl *Controller) Wait() {
	ctl.wg.Wait()
}

// Close cancels capture, speech and navigation in flight and waits for
// them. Later taps are ignored.
func (ctl *Controller) Close() {
	ctl.mu.Lock()
	if ctl.closed {
		ctl.mu.Unlock()
		return
	}
	ctl.closed = true
	ctl.gen++
	if ctl.stopSpeaking != nil {
		ctl.stopSpeaking()
		ctl.stopSpeaking = nil
	}
	if ctl.snap.Status == Speaking {
		ctl.deps.Speech.Stop()
	}
	ctl.snap.Status = Idle
	snap := ctl.snap
	ctl.mu.Unlock()

	ctl.cancel()
	ctl.wg.Wait()
	ctl.publish(snap)
}

func (ctl *Controller) run(ctx context.Context, gen uint64, c lang.Code) {
	phrases := lang.For(c)

	ctl.logger.Info("Starting listening", "lang", c)

	transcript, err := ctl.deps.Capture.Listen(ctx, c)
	if err != nil {
		ctl.captureFailed(ctx, gen, c, err)
		return
	}

	text := strings.TrimSpace(transcript)
	ctl.logger.Info("Transcribed", "text", text)

	if text == "" {
		ctl.mu.Lock()
		if ctl.gen == gen {
			ctl.snap.LastTranscript = ""
		}
		ctl.mu.Unlock()

		ctl.speak(ctx, gen, c, phrases.NothingHeard, "", "empty", nil)
		return
	}

	if !ctl.transition(gen, Thinking, func(s *Snapshot) {
		s.LastTranscript = text
	}) {
		return
	}

	if target, ok := ctl.deps.Resolver.Resolve(c, text); ok {
		ctl.logger.Info("Resolved intent", "target", target.ID, "path", target.Path)
		ctl.metrics.Intent(target.ID, c.String())

		ctl.speak(ctx, gen, c, phrases.OpeningFor(target.Label(c)), target.ID, "navigated", func() {
			ctl.navigate(target)
		})
		return
	}

	reply := ctl.deps.Answer.Answer(ctx, c, text)
	ctl.speak(ctx, gen, c, reply, "", "answered", nil)
}

func (ctl *Controller) captureFailed(ctx context.Context, gen uint64, c lang.Code, err error) {
	if !ctl.current(gen) {
		return
	}

	if ctx.Err() != nil {
		ctl.logger.Info("Listening cancelled", "err", err)
		if ctl.transition(gen, Idle, nil) {
			ctl.metrics.Run("cancelled")
		}
		return
	}

	cerr := ClassifyCapture(err)
	phrases := lang.For(c)

	toast := Toast{Kind: ToastCapture, Message: phrases.CouldNotListen}
	outcome := "capture_failed"
	if cerr.Permission {
		toast = Toast{Kind: ToastPermission, Message: phrases.PermissionDenied}
		outcome = "permission_denied"
	}

	ctl.logger.Error("Failed to listen", "permission", cerr.Permission, "err", err)

	if nerr := ctl.deps.Notify.Notify(ctx, toast); nerr != nil {
		ctl.logger.Warn("Failed to show toast", "err", nerr)
	}

	if ctl.transition(gen, Idle, nil) {
		ctl.metrics.Run(outcome)
	}
}

// speak moves to Speaking, fires also (if any) without waiting on playback,
// then plays text. A tap or Close during playback invalidates gen, and
// nothing further happens for this interaction.
func (ctl *Controller) speak(ctx context.Context, gen uint64, c lang.Code, text, target, outcome string, also func()) {
	ctl.mu.Lock()
	if ctl.gen != gen || ctl.closed {
		ctl.mu.Unlock()
		return
	}
	speechCtx, stop := context.WithCancel(ctx)
	ctl.stopSpeaking = stop
	ctl.snap.Status = Speaking
	ctl.snap.LastResponse = text
	if target != "" {
		ctl.snap.LastTarget = target
	}
	snap := ctl.snap
	ctl.mu.Unlock()

	ctl.publish(snap)

	if also != nil {
		also()
	}

	err := ctl.deps.Speech.Speak(speechCtx, c, text)
	stop()

	ctl.mu.Lock()
	if ctl.gen != gen {
		ctl.mu.Unlock()
		return
	}
	ctl.stopSpeaking = nil
	ctl.snap.Status = Idle
	snap = ctl.snap
	ctl.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		ctl.logger.Error("Failed to voice out", "err", err)
		outcome = "speech_failed"
	}

	ctl.metrics.Run(outcome)
	ctl.publish(snap)
}

// navigate runs beside speech on the controller's own context, so stopping
// playback never cancels it.
func (ctl *Controller) navigate(target intent.Target) {
	ctl.wg.Add(1)
	go func() {
		defer ctl.wg.Done()
		if err := ctl.deps.Navigate.Navigate(ctl.ctx, target); err != nil {
			ctl.logger.Error("Failed to navigate", "target", target.ID, "err", err)
		}
	}()
}

func (ctl *Controller) transition(gen uint64, to Status, update func(*Snapshot)) bool {
	ctl.mu.Lock()
	if ctl.gen != gen || ctl.closed {
		ctl.mu.Unlock()
		return false
	}
	ctl.snap.Status = to
	if update != nil {
		update(&ctl.snap)
	}
	snap := ctl.snap
	ctl.mu.Unlock()

	ctl.publish(snap)
	return true
}

func (ctl *Controller) current(gen uint64) bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.gen == gen && !ctl.closed
}

func (ctl *Controller) publish(snap Snapshot) {
	ctl.metrics.Status(snap.Status.String())
	if ctl.observe != nil {
		ctl.observe(snap)
	}
}
