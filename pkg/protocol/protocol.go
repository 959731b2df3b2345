// Package protocol speaks the monolith bus: single-line frames of the form
//
//	TO:VERB:NOUN[:ARG...]:FROM
//
// carried over a websocket.
package protocol

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
)

type Config struct {
	Shard     string
	URL       string
	Reconnect time.Duration
	// OnMessage receives frames addressed to Shard that no Request waits for.
	OnMessage func(*Message)
}

type Protocol struct {
	ws    *WebSocket
	shard string

	waiterMu sync.Mutex
	waiter   chan *Message

	onMessage func(*Message)
}

func New(ctx context.Context, cfg Config) (*Protocol, error) {
	if !isToken(cfg.Shard) {
		return nil, fmt.Errorf("invalid shard name %q", cfg.Shard)
	}
	if cfg.Reconnect <= 0 {
		cfg.Reconnect = time.Second
	}

	web, err := DialWebSocket(ctx, cfg.URL, cfg.Reconnect)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}

	return &Protocol{
		ws:        web,
		shard:     cfg.Shard,
		onMessage: cfg.OnMessage,
	}, nil
}

func (p *Protocol) Shard() string { return p.shard }

// Handle replaces the OnMessage callback. Call it before Run.
func (p *Protocol) Handle(f func(*Message)) {
	p.onMessage = f
}

// Transmit sends m with From set to this shard.
func (p *Protocol) Transmit(m Message) error {
	m.From = p.shard
	if err := m.Validate(); err != nil {
		return err
	}

	if err := p.ws.Write([]byte(m.String())); err != nil {
		log.Error("Failed to transmit", "msg", m.String(), "err", err)
		return err
	}
	return nil
}

// Request transmits m and waits for the next frame addressed to this shard.
func (p *Protocol) Request(ctx context.Context, m Message) (*Message, error) {
	w := p.installWaiter()
	defer p.clearWaiter()

	if err := p.Transmit(m); err != nil {
		return nil, err
	}

	select {
	case resp := <-w:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run reads frames until ctx is done, reconnecting when the bus drops.
func (p *Protocol) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		p.ws.Close()
	}()

	for {
		in := p.ws.read()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch in.kind {
		case connClosed, readFailed:
			log.Warn("Bus connection lost, reconnecting", "url", p.ws.url, "err", in.err)
			if err := p.ws.reconnect(ctx); err != nil {
				return err
			}
			log.Info("Reconnected to bus", "url", p.ws.url)

		case readOK:
			p.dispatch(string(in.msg))
		}
	}
}

func (p *Protocol) dispatch(frame string) {
	msg, err := Parse(frame)
	if err != nil {
		log.Warn("Failed to parse", "msg", frame, "err", err)
		return
	}
	if msg.To != p.shard && msg.To != Broadcast {
		return
	}

	if w := p.currentWaiter(); w != nil {
		select {
		case w <- msg:
			return
		default:
		}
	}
	if p.onMessage != nil {
		p.onMessage(msg)
	}
}

func (p *Protocol) installWaiter() chan *Message {
	p.waiterMu.Lock()
	defer p.waiterMu.Unlock()
	p.waiter = make(chan *Message, 1)
	return p.waiter
}

func (p *Protocol) clearWaiter() {
	p.waiterMu.Lock()
	defer p.waiterMu.Unlock()
	p.waiter = nil
}

func (p *Protocol) currentWaiter() chan *Message {
	p.waiterMu.Lock()
	defer p.waiterMu.Unlock()
	return p.waiter
}

func (p *Protocol) Close() error {
	return p.ws.Close()
}

const Broadcast = "ALL"

type Message struct {
	To   string
	Verb string
	Noun string
	Args []string
	From string
}

func Parse(line string) (*Message, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return nil, errors.New("empty message")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return nil, errors.New("invalid whitespace present")
	}

	parts := strings.Split(s, ":")
	if len(parts) < 4 {
		return nil, fmt.Errorf("too few fields: got %d, want >= 4", len(parts))
	}

	msg := &Message{
		To:   parts[0],
		Verb: strings.ToUpper(parts[1]),
		Noun: strings.ToUpper(parts[2]),
		Args: append([]string(nil), parts[3:len(parts)-1]...),
		From: parts[len(parts)-1],
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (m *Message) Validate() error {
	if !isToken(m.To) && !isHexID(m.To) && m.To != Broadcast {
		return fmt.Errorf("invalid TO token: %q", m.To)
	}
	if !isToken(m.From) && !isHexID(m.From) {
		return fmt.Errorf("invalid FROM token: %q", m.From)
	}
	if !isToken(m.Verb) || !isToken(m.Noun) {
		return fmt.Errorf("invalid VERB/NOUN: %q %q", m.Verb, m.Noun)
	}
	for i, a := range m.Args {
		if !isToken(a) {
			return fmt.Errorf("invalid ARG[%d]: %q", i, a)
		}
	}
	return nil
}

func (m *Message) String() string {
	parts := make([]string, 0, 4+len(m.Args))
	parts = append(parts, m.To, m.Verb, m.Noun)
	parts = append(parts, m.Args...)
	parts = append(parts, m.From)
	return strings.Join(parts, ":")
}

// Reply builds the answer to m: addressed back to the sender, OK or ERR
// with reason as noun.
func (m *Message) Reply(ok bool, reason string, args ...string) Message {
	verb := "OK"
	if !ok {
		verb = "ERR"
	}
	return Message{To: m.From, Verb: verb, Noun: reason, Args: args}
}

var (
	tokenRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	hexIDRe = regexp.MustCompile(`^[0-9A-F]{2}$`)
)

func isToken(s string) bool {
	return tokenRe.MatchString(s)
}

func isHexID(s string) bool {
	return hexIDRe.MatchString(strings.ToUpper(s))
}
