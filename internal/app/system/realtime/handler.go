// internal/app/system/realtime/handler.go
package realtime

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dalemusser/perfhub/internal/app/system/auditlog"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	DefaultAuthTimeout  = 10 * time.Second
	DefaultPingInterval = 30 * time.Second
	DefaultWriteTimeout = 5 * time.Second
)

// Handler upgrades GET /ws and authenticates the first frame. A client is
// accepted when the claimed userId matches the session cookie user or a
// valid realtime token.
type Handler struct {
	Registry *Registry
	Sessions *auth.SessionManager
	Tokens   *auth.TokenIssuer
	Users    auth.UserFetcher
	Audit    *auditlog.Logger
	Log      *zap.Logger

	AuthTimeout    time.Duration
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	OriginPatterns []string
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cookieUser := ""
	if h.Sessions != nil {
		cookieUser = h.Sessions.SessionUserID(r)
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	ctx := r.Context()

	userID, claimed, reason := h.authenticate(ctx, c, cookieUser)
	if reason != "" {
		h.Log.Warn("realtime auth rejected",
			zap.String("claimed_user_id", claimed),
			zap.String("reason", reason))
		h.Audit.RealtimeAuthFailed(ctx, r, claimed, reason)
		wctx, cancel := context.WithTimeout(ctx, h.writeTimeout())
		_ = wsjson.Write(wctx, c, ServerFrame{Type: TypeAuthError, Message: "authentication failed"})
		cancel()
		_ = c.Close(websocket.StatusPolicyViolation, "authentication failed")
		return
	}

	conn := &wsConn{c: c, writeTimeout: h.writeTimeout()}
	h.Registry.Register(userID, conn)
	defer func() {
		h.Registry.Unregister(userID, conn)
		_ = c.CloseNow()
	}()

	if err := conn.Send(ctx, ServerFrame{Type: TypeAuthSuccess}); err != nil {
		return
	}
	h.Log.Debug("realtime client connected", zap.String("user_id", userID.Hex()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go h.keepalive(ctx, c)

	for {
		var f ClientFrame
		if err := wsjson.Read(ctx, c, &f); err != nil {
			h.Log.Debug("realtime client disconnected",
				zap.String("user_id", userID.Hex()),
				zap.Error(err))
			return
		}
		if f.Type == TypePing {
			if err := conn.Send(ctx, ServerFrame{Type: TypePong}); err != nil {
				return
			}
		}
	}
}

// authenticate reads the auth frame. A non-empty reason means rejection.
func (h *Handler) authenticate(ctx context.Context, c *websocket.Conn, cookieUser string) (primitive.ObjectID, string, string) {
	actx, cancel := context.WithTimeout(ctx, h.authTimeout())
	defer cancel()

	var f ClientFrame
	if err := wsjson.Read(actx, c, &f); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return primitive.NilObjectID, "", "auth timeout"
		}
		return primitive.NilObjectID, "", "unreadable auth frame"
	}
	if f.Type != TypeAuth {
		return primitive.NilObjectID, f.UserID, "first frame was not auth"
	}
	oid, err := primitive.ObjectIDFromHex(f.UserID)
	if err != nil {
		return primitive.NilObjectID, f.UserID, "invalid user id"
	}

	matched := cookieUser != "" && cookieUser == f.UserID
	if !matched && h.Tokens != nil && f.Token != "" {
		if sub, err := h.Tokens.Verify(f.Token); err == nil && sub == f.UserID {
			matched = true
		}
	}
	if !matched {
		return primitive.NilObjectID, f.UserID, "credentials do not match user"
	}

	if h.Users != nil {
		u := h.Users.FetchUser(ctx, f.UserID)
		if u == nil {
			return primitive.NilObjectID, f.UserID, "user not found"
		}
		if !u.IsPlatformAdmin() && !u.TenantActive {
			return primitive.NilObjectID, f.UserID, "tenant inactive"
		}
	}
	return oid, f.UserID, ""
}

func (h *Handler) keepalive(ctx context.Context, c *websocket.Conn) {
	t := time.NewTicker(h.pingInterval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, h.writeTimeout())
			err := c.Ping(pctx)
			cancel()
			if err != nil {
				_ = c.CloseNow()
				return
			}
		}
	}
}

func (h *Handler) authTimeout() time.Duration {
	if h.AuthTimeout > 0 {
		return h.AuthTimeout
	}
	return DefaultAuthTimeout
}

func (h *Handler) pingInterval() time.Duration {
	if h.PingInterval > 0 {
		return h.PingInterval
	}
	return DefaultPingInterval
}

func (h *Handler) writeTimeout() time.Duration {
	if h.WriteTimeout > 0 {
		return h.WriteTimeout
	}
	return DefaultWriteTimeout
}

// wsConn adapts a websocket connection to Conn. Writes are safe for
// concurrent use.
type wsConn struct {
	c            *websocket.Conn
	writeTimeout time.Duration
}

func (w *wsConn) Send(ctx context.Context, f ServerFrame) error {
	ctx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, w.c, f)
}

// Close starts the close handshake without blocking the caller.
func (w *wsConn) Close(reason string) error {
	go func() { _ = w.c.Close(websocket.StatusNormalClosure, reason) }()
	return nil
}
