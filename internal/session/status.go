package session

import (
	"fmt"

	"mitravox/internal/lang"
)

type Status uint8

const (
	Idle Status = iota
	Listening
	Thinking
	Speaking
)

var statusNames = [...]string{
	Idle:      "idle",
	Listening: "listening",
	Thinking:  "thinking",
	Speaking:  "speaking",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// Tap is what the controller did with one mic tap.
type Tap uint8

const (
	TapIgnored Tap = iota
	TapStarted
	TapStopped
)

func (t Tap) String() string {
	switch t {
	case TapStarted:
		return "started"
	case TapStopped:
		return "stopped"
	default:
		return "ignored"
	}
}

// Snapshot is the session state the UI renders.
type Snapshot struct {
	Status         Status    `json:"status"`
	Language       lang.Code `json:"lang"`
	LastTranscript string    `json:"last_transcript,omitempty"`
	LastResponse   string    `json:"last_response,omitempty"`
	LastTarget     string    `json:"last_target,omitempty"`
}
