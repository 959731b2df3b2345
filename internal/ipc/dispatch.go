package ipc

import (
	"context"
	"fmt"

	"mitravox/internal/lang"
	"mitravox/internal/session"
)

type Controller interface {
	Trigger(ctx context.Context) session.Tap
	SetLanguage(c lang.Code) error
	Snapshot() session.Snapshot
}

// Dispatch routes control requests to ctl. Interactions started by a
// trigger run on base, not on the short-lived connection context.
func Dispatch(base context.Context, ctl Controller) Handler {
	return func(_ context.Context, req Request) Response {
		switch req.Cmd {
		case CmdTrigger:
			tap := ctl.Trigger(base)
			return Response{OK: true, Tap: tap.String()}

		case CmdStatus:
			snap := ctl.Snapshot()
			return Response{OK: true, Snapshot: &snap}

		case CmdLang:
			c, err := lang.Parse(req.Arg)
			if err == nil {
				err = ctl.SetLanguage(c)
			}
			if err != nil {
				return Response{Error: err.Error()}
			}
			snap := ctl.Snapshot()
			return Response{OK: true, Snapshot: &snap}

		default:
			return Response{Error: fmt.Sprintf("unknown command %q", req.Cmd)}
		}
	}
}
