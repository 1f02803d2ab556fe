package callbacks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	// StepEvent is emitted after every training step.
	StepEvent = "train_step"
	// EndEvent is emitted once the run finished.
	EndEvent = "train_end"

	connectTimeout = 15 * time.Second
)

// StepPayload is the data of a StepEvent.
type StepPayload struct {
	Step     int                `json:"step"`
	MaxSteps int                `json:"max_steps"`
	Values   map[string]float64 `json:"values"`
}

// Emitter sends events to a connected peer.
type Emitter interface {
	Emit(event string, data any)
	Close()
}

// Dialer opens an Emitter.
type Dialer func(ctx context.Context, rawURL string) (Emitter, error)

// Broadcast streams training progress to a socket.io server so dashboards
// can follow a run live.
type Broadcast struct {
	Base
	url   string
	names []string
	dial  Dialer
	conn  Emitter
}

// NewBroadcast creates a broadcast callback targeting cfg.BroadcastURL.
func NewBroadcast(cfg *config.Config) (*Broadcast, error) {
	if cfg.BroadcastURL == "" {
		return nil, fmt.Errorf("train_broadcast needs --broadcast_url")
	}
	if _, err := url.Parse(cfg.BroadcastURL); err != nil {
		return nil, fmt.Errorf("invalid broadcast url: %w", err)
	}
	return &Broadcast{
		Base:  Base{name: "train_broadcast"},
		url:   cfg.BroadcastURL,
		names: cfg.SummaryNames,
		dial:  DialSocketIO,
	}, nil
}

// WithDialer replaces the socket.io dialer.
func (b *Broadcast) WithDialer(d Dialer) *Broadcast {
	b.dial = d
	return b
}

// BeforeRun implements component.Callback.
func (b *Broadcast) BeforeRun(ctx context.Context, _ *component.RunState) error {
	conn, err := b.dial(ctx, b.url)
	if err != nil {
		return err
	}
	b.conn = conn
	return nil
}

// AfterStep implements component.Callback.
func (b *Broadcast) AfterStep(_ context.Context, st *component.RunState) error {
	if b.conn == nil {
		return nil
	}
	b.conn.Emit(StepEvent, b.payload(st))
	return nil
}

// AfterRun implements component.Callback.
func (b *Broadcast) AfterRun(ctx context.Context, st *component.RunState) error {
	if b.conn == nil {
		return nil
	}
	b.conn.Emit(EndEvent, b.payload(st))
	b.conn.Close()
	b.conn = nil
	ctxlog.FromContext(ctx).Debug("Broadcast closed.", "url", b.url)
	return nil
}

func (b *Broadcast) payload(st *component.RunState) StepPayload {
	p := StepPayload{Step: st.Step + 1, MaxSteps: st.MaxSteps, Values: map[string]float64{}}
	for _, name := range b.names {
		if v, ok := st.Outputs.Scalar(name); ok {
			p.Values[name] = v
		} else if v, ok := st.Metrics[name]; ok {
			p.Values[name] = v
		}
	}
	return p
}

type socketEmitter struct {
	io *socket.Socket
}

func (s socketEmitter) Emit(event string, data any) { s.io.Emit(event, data) }
func (s socketEmitter) Close()                      { s.io.Disconnect() }

// DialSocketIO connects to a socket.io server over websocket. The URL path
// is used as the socket.io path and the default namespace is joined.
func DialSocketIO(ctx context.Context, rawURL string) (Emitter, error) {
	logger := ctxlog.FromContext(ctx).With("callback", "train_broadcast", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Broadcast connected", "sid", io.Id())
		notify(connectChan, nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		notify(connectChan, err)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return socketEmitter{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}
}

func notify(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}
