// internal/app/system/realtime/client.go
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.uber.org/zap"
)

var (
	// ErrConnectionLost is returned by Client.Run once every reconnect
	// attempt has failed.
	ErrConnectionLost = errors.New("realtime: connection lost")
	// ErrAuthRejected is returned when the server refuses the credentials.
	// Run does not retry it.
	ErrAuthRejected = errors.New("realtime: authentication rejected")
)

// DefaultBackoff is the wait before each reconnect attempt.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
}

// DefaultClientPingInterval is how often a connected Client sends a ping frame.
const DefaultClientPingInterval = 25 * time.Second

const pingWriteTimeout = 10 * time.Second

// Client is a Go consumer of the /ws endpoint with automatic reconnect.
type Client struct {
	URL    string
	UserID string
	Token  string
	// TokenSource, when set, is called before each connection so a
	// short-lived token can be refreshed. It takes precedence over Token.
	TokenSource func(ctx context.Context) (string, error)
	Header      http.Header
	Backoff     []time.Duration
	// PingInterval defaults to DefaultClientPingInterval.
	PingInterval time.Duration

	OnNotification func(models.Notification)
	Log            *zap.Logger
}

// Run connects and delivers notifications until ctx is done. A connection
// that authenticated resets the attempt counter.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.Backoff
	if backoff == nil {
		backoff = DefaultBackoff
	}
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}

	attempt := 0
	for {
		authed, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrAuthRejected) {
			return err
		}
		if authed {
			attempt = 0
		}
		if attempt >= len(backoff) {
			return fmt.Errorf("%w after %d attempts: %v", ErrConnectionLost, attempt, err)
		}
		wait := backoff[attempt]
		attempt++
		log.Info("realtime reconnecting",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// session runs one connection. It reports whether authentication succeeded.
func (c *Client) session(ctx context.Context) (bool, error) {
	conn, _, err := websocket.Dial(ctx, c.URL, &websocket.DialOptions{HTTPHeader: c.Header})
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	token := c.Token
	if c.TokenSource != nil {
		if token, err = c.TokenSource(ctx); err != nil {
			return false, fmt.Errorf("token: %w", err)
		}
	}

	if err := wsjson.Write(ctx, conn, ClientFrame{Type: TypeAuth, UserID: c.UserID, Token: token}); err != nil {
		return false, fmt.Errorf("send auth: %w", err)
	}
	var f inbound
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		return false, fmt.Errorf("read auth reply: %w", err)
	}
	switch f.Type {
	case TypeAuthSuccess:
	case TypeAuthError:
		return false, fmt.Errorf("%w: %s", ErrAuthRejected, f.Message)
	default:
		return false, fmt.Errorf("unexpected frame %q before auth", f.Type)
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pingErr := make(chan error, 1)
	go c.pingLoop(readCtx, cancel, conn, pingErr)

	for {
		var f inbound
		if err := wsjson.Read(readCtx, conn, &f); err != nil {
			select {
			case perr := <-pingErr:
				return true, perr
			default:
			}
			return true, err
		}
		if f.Type != TypeNotification || c.OnNotification == nil {
			continue
		}
		var n models.Notification
		if err := json.Unmarshal(f.Data, &n); err != nil {
			continue
		}
		c.OnNotification(n)
	}
}

// pingLoop writes a ping frame every PingInterval. A failed write is
// reported on errc and cancels the read side so the session ends.
func (c *Client) pingLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, errc chan<- error) {
	every := c.PingInterval
	if every <= 0 {
		every = DefaultClientPingInterval
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		wctx, wcancel := context.WithTimeout(ctx, pingWriteTimeout)
		err := wsjson.Write(wctx, conn, ClientFrame{Type: TypePing})
		wcancel()
		if err != nil {
			if ctx.Err() == nil {
				errc <- fmt.Errorf("send ping: %w", err)
				cancel()
			}
			return
		}
	}
}
