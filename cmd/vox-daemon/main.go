package main

import (
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mitravox/internal/answer"
	"mitravox/internal/audio"
	"mitravox/internal/config"
	"mitravox/internal/intent"
	"mitravox/internal/ipc"
	"mitravox/internal/metrics"
	"mitravox/internal/nav"
	"mitravox/internal/notify"
	"mitravox/internal/session"
	"mitravox/internal/speech"
	"mitravox/internal/tts"
	"mitravox/pkg/protocol"
	"mitravox/pkg/stt"
)

func main() {
	cfg, fl := config.New("vox-daemon")
	if err := cfg.Load(fl, os.Args[1:]); err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(2)
	}

	log.SetDefault(cfg.Logger(os.Stdout))
	log.Info("Booting up", "lang", cfg.Language)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error("Daemon failed", "err", err)
		os.Exit(1)
	}
	log.Info("Bye")
}

func run(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	answerer, err := answer.FromConfig(cfg, m)
	if err != nil {
		return err
	}

	rec := audio.NewRecorder(audio.DefaultVAD)
	if err := rec.Init(); err != nil {
		return err
	}
	defer rec.Close()
	log.Debug("Loaded recorder")

	whisper, err := stt.NewTranscriber(cfg.Model, stt.Options{Language: "auto"})
	if err != nil {
		return err
	}
	defer whisper.Close()
	log.Debug("Loaded whisper", "model", cfg.Model)

	var cue speech.Cue
	if cfg.Earcon != "" {
		earcon, err := notify.LoadEarcon(cfg.Earcon)
		if err != nil {
			log.Warn("Earcon disabled", "err", err)
		} else {
			cue = earcon
		}
	}

	espeak, err := tts.NewEspeak()
	if err != nil {
		return err
	}
	defer espeak.Close()
	log.Debug("Loaded espeak")

	desktop := notify.NewDesktop()
	var toasts session.Notifier = notify.Log{}
	listening := func(session.Snapshot) {}
	if cfg.Notify == config.NotifyDesktop {
		toasts = desktop
		listening = notify.OnListening(ctx, desktop)
	}

	var (
		bus       *protocol.Protocol
		navigator session.Navigator = nav.Log{}
	)
	if cfg.BusURL != "" {
		bus, err = protocol.New(ctx, protocol.Config{Shard: nav.VoxShard, URL: cfg.BusURL})
		if err != nil {
			return err
		}
		defer bus.Close()
		navigator = nav.NewBus(bus)
		log.Debug("Connected to bus", "url", cfg.BusURL)
	}

	ctl := session.New(session.Deps{
		Capture:  speech.NewMic(rec, whisper, cue),
		Speech:   speech.NewDucking(espeak, audio.NewDucker(audio.Pactl{}, audio.DefaultDuck)),
		Answer:   answerer,
		Navigate: navigator,
		Notify:   toasts,
		Resolver: intent.NewResolver(intent.DefaultTable()),
	},
		session.WithLanguage(cfg.Language),
		session.WithMetrics(m),
		session.WithObserver(func(s session.Snapshot) {
			log.Debug("Status", "status", s.Status, "lang", s.Language)
			listening(s)
		}),
	)
	defer ctl.Close()

	if bus != nil {
		bus.Handle(nav.Handler(ctx, ctl, bus))
		go func() {
			if err := bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Bus stopped", "err", err)
			}
		}()
	}

	if cfg.Metrics != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", "err", err)
			}
		}()
		defer srv.Close()
		log.Info("Serving metrics", "addr", cfg.Metrics)
	}

	ctrl, err := ipc.Listen(cfg.Socket)
	if err != nil {
		return err
	}

	log.Info("Boot up - successful", "socket", ctrl.Path())
	return ctrl.Serve(ctx, ipc.Dispatch(ctx, ctl))
}
