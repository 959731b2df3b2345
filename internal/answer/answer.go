// Package answer produces a spoken reply for utterances that did not match
// any navigation intent. Answerers never fail: every error path collapses
// into a localized apology.
package answer

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"mitravox/internal/lang"
	"mitravox/internal/metrics"
)

// Timeout bounds one call to the answering service.
const Timeout = 8 * time.Second

// ErrTimeout is reported when the service does not answer within Timeout.
// It never leaves this package.
var ErrTimeout = errors.New("answering service timed out")

type Answerer interface {
	Answer(ctx context.Context, c lang.Code, transcript string) string
}

// Completer is a chat model: a system prompt and a user message in, text out.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type LLM struct {
	model   Completer
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *log.Logger
}

type Option func(*LLM)

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *LLM) { l.metrics = m }
}

func WithLogger(lg *log.Logger) Option {
	return func(l *LLM) { l.logger = lg }
}

func NewLLM(model Completer, opts ...Option) *LLM {
	l := &LLM{
		model:   model,
		timeout: Timeout,
		logger:  log.Default(),
	}
	for _, o := range opts {
		o(l)
	}

	l.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "answerer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: healthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return l
}

func (l *LLM) Answer(ctx context.Context, c lang.Code, transcript string) string {
	start := time.Now()

	text, err := l.ask(ctx, c, transcript)
	outcome := classify(err)
	l.metrics.Answer(outcome, time.Since(start))

	if err != nil {
		l.logger.Warn("Falling back to apology", "outcome", outcome, "err", err)
		return lang.For(c).Sorry
	}

	return text
}

func (l *LLM) ask(ctx context.Context, c lang.Code, transcript string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		v, err := l.breaker.Execute(func() (interface{}, error) {
			text, err := l.model.Complete(ctx, systemPrompt(c), transcript)
			if err != nil {
				return nil, err
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return nil, errors.New("empty completion")
			}
			return text, nil
		})
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{text: v.(string)}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrTimeout, r.err)
		}
		return r.text, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", ctx.Err()
	}
}

// healthy keeps caller cancellation from counting against the service.
func healthy(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "open"
	default:
		return "error"
	}
}

var languageNames = map[lang.Code]string{
	lang.English: "English",
	lang.Hindi:   "Hindi",
	lang.Telugu:  "Telugu",
}

func systemPrompt(c lang.Code) string {
	name, ok := languageNames[c]
	if !ok {
		name = languageNames[lang.English]
	}

	return fmt.Sprintf(`You are Mitra, the voice assistant of a farmer services app.
The farmer asked a question by voice. Answer it directly for a small farmer in India.

RULES:
1. Reply in %s only.
2. At most three short sentences; the reply is read aloud.
3. No markdown, lists, emojis or URLs.
4. If you do not know, say so and suggest asking an agriculture officer.`, name)
}

// Static always answers with the same text. Empty Text means the apology of
// the requested language.
type Static struct {
	Text string
}

func (s Static) Answer(_ context.Context, c lang.Code, _ string) string {
	if s.Text == "" {
		return lang.For(c).Sorry
	}
	return s.Text
}
