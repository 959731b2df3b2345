// Command vox runs the assistant on the console: every stdin line is one
// utterance, or with --file a single recording is transcribed.
package main

import (
	"context"
	"errors"
	"io"
	log "log/slog"
	"os"
	"os/signal"

	"mitravox/internal/answer"
	"mitravox/internal/config"
	"mitravox/internal/intent"
	"mitravox/internal/lang"
	"mitravox/internal/nav"
	"mitravox/internal/notify"
	"mitravox/internal/session"
	"mitravox/internal/speech"
	"mitravox/pkg/audioconv"
	"mitravox/pkg/stt"
)

func main() {
	cfg, fl := config.New("vox")
	file := fl.StringP("file", "f", "", "Transcribe this recording instead of reading stdin")
	if err := cfg.Load(fl, os.Args[1:]); err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(2)
	}

	log.SetDefault(cfg.Logger(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *file); err != nil {
		log.Error("Failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, file string) error {
	answerer, err := answer.FromConfig(cfg, nil)
	if err != nil {
		return err
	}

	// ends the session quietly once input runs out
	ctx, done := context.WithCancel(ctx)
	defer done()

	var capture session.Capturer
	if file != "" {
		whisper, err := stt.NewTranscriber(cfg.Model, stt.Options{Language: "auto"})
		if err != nil {
			return err
		}
		defer whisper.Close()

		capture = speech.NewFile(file, decodeFile, whisper)
	} else {
		capture = endOfInput{speech.NewLines(os.Stdin), done}
	}

	ctl := session.New(session.Deps{
		Capture:  capture,
		Speech:   speech.NewWriter(os.Stdout),
		Answer:   answerer,
		Navigate: nav.Log{},
		Notify:   notify.Log{},
		Resolver: intent.NewResolver(intent.DefaultTable()),
	}, session.WithLanguage(cfg.Language))
	defer ctl.Close()

	for ctx.Err() == nil {
		ctl.Trigger(ctx)
		ctl.Wait()
		if file != "" {
			break
		}
	}
	return nil
}

func decodeFile(ctx context.Context, path string) ([]float32, error) {
	return audioconv.DecodeFile(ctx, path, audioconv.Options{MaxSamples: 60 * audioconv.TargetRate})
}

// endOfInput stops the runner once stdin is exhausted or unreadable;
// Lines keeps returning the same error after that.
type endOfInput struct {
	session.Capturer
	cancel context.CancelFunc
}

func (e endOfInput) Listen(ctx context.Context, c lang.Code) (string, error) {
	text, err := e.Capturer.Listen(ctx, c)
	if err != nil && ctx.Err() == nil {
		if !errors.Is(err, io.EOF) {
			log.Error("Failed to read input", "err", err)
		}
		e.cancel()
	}
	return text, err
}
