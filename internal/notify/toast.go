package notify

import (
	"context"
	"fmt"
	log "log/slog"
	"os/exec"
	"strconv"
	"time"

	"mitravox/internal/session"
)

// Desktop shows toasts through the freedesktop notification daemon.
type Desktop struct {
	App     string
	Timeout time.Duration
}

func NewDesktop() Desktop {
	return Desktop{App: "Mitra", Timeout: 4 * time.Second}
}

func (d Desktop) Notify(ctx context.Context, t session.Toast) error {
	return d.send(ctx, d.args(t))
}

// Show displays a plain status message such as "Listening...".
func (d Desktop) Show(ctx context.Context, msg string) error {
	return d.send(ctx, d.base("low", msg))
}

func (d Desktop) send(ctx context.Context, args []string) error {
	out, err := exec.CommandContext(ctx, "notify-send", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("notify-send: %w (%s)", err, out)
	}
	return nil
}

func (d Desktop) args(t session.Toast) []string {
	urgency := "normal"
	if t.Kind == session.ToastPermission {
		urgency = "critical"
	}
	return d.base(urgency, t.Message)
}

func (d Desktop) base(urgency, msg string) []string {
	return []string{
		"--app-name=" + d.App,
		"--urgency=" + urgency,
		"--expire-time=" + strconv.FormatInt(d.Timeout.Milliseconds(), 10),
		d.App,
		msg,
	}
}

// Log writes toasts to the log; used when there is no desktop.
type Log struct {
	Logger *log.Logger
}

func (l Log) Notify(_ context.Context, t session.Toast) error {
	lg := l.Logger
	if lg == nil {
		lg = log.Default()
	}
	lg.Warn("Toast", "kind", t.Kind.String(), "message", t.Message)
	return nil
}
