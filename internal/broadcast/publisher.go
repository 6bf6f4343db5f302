package broadcast

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/vk/cellgrid/internal/ctxlog"
	"github.com/vk/cellgrid/internal/engine"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultConnectTimeout bounds how long Dial waits for the server.
const DefaultConnectTimeout = 15 * time.Second

// Config describes the presentation server.
type Config struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Publisher emits engine events to one Socket.IO namespace.
type Publisher struct {
	emit       func(event string, body map[string]any)
	disconnect func()
	closed     atomic.Bool
	sent       atomic.Int64
}

func newPublisher(emit func(string, map[string]any), disconnect func()) *Publisher {
	return &Publisher{emit: emit, disconnect: disconnect}
}

// Dial connects to the server and waits for the namespace handshake.
func Dial(ctx context.Context, cfg Config) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("component", "broadcast", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("broadcast URL must be absolute: %q", cfg.URL)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to presentation server.", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	return newPublisher(
		func(event string, body map[string]any) { io.Emit(event, body) },
		func() { io.Disconnect() },
	), nil
}

// Publish emits ev. It is safe to register as an engine listener. Events
// published after Close are dropped.
func (p *Publisher) Publish(ev engine.Event) {
	if p.closed.Load() {
		return
	}
	name, body := Payload(ev)
	p.emit(name, body)
	p.sent.Add(1)
}

// Sent returns the number of events emitted so far.
func (p *Publisher) Sent() int64 { return p.sent.Load() }

// Close disconnects from the server.
func (p *Publisher) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.disconnect()
	}
	return nil
}
