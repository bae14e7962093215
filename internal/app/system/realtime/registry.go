// internal/app/system/realtime/registry.go
package realtime

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Conn is one authenticated client connection.
type Conn interface {
	Send(ctx context.Context, f ServerFrame) error
	Close(reason string) error
}

// Registry maps a user to their single live connection. A new Register for
// the same user replaces (and closes) the previous connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[primitive.ObjectID]Conn
	log   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{conns: make(map[primitive.ObjectID]Conn), log: logger}
}

// Register installs c for userID and closes any connection it replaces.
func (r *Registry) Register(userID primitive.ObjectID, c Conn) {
	r.mu.Lock()
	prev, had := r.conns[userID]
	r.conns[userID] = c
	r.mu.Unlock()

	if had && prev != c {
		r.log.Debug("realtime connection replaced", zap.String("user_id", userID.Hex()))
		_ = prev.Close("replaced by newer connection")
	}
}

// Unregister removes userID only if c is still the registered connection.
// A stale connection closing late must not evict its replacement.
func (r *Registry) Unregister(userID primitive.ObjectID, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[userID]; ok && cur == c {
		delete(r.conns, userID)
		return true
	}
	return false
}

// Lookup returns the live connection for userID, if any.
func (r *Registry) Lookup(userID primitive.ObjectID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// Push sends a notification frame to userID. It reports false without error
// when the user has no live connection. A failed send drops the connection.
func (r *Registry) Push(ctx context.Context, userID primitive.ObjectID, data any) (bool, error) {
	c, ok := r.Lookup(userID)
	if !ok {
		return false, nil
	}
	if err := c.Send(ctx, ServerFrame{Type: TypeNotification, Data: data}); err != nil {
		if r.Unregister(userID, c) {
			_ = c.Close("send failed")
		}
		return false, err
	}
	return true, nil
}

// Len reports the number of connected users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every connection. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[primitive.ObjectID]Conn)
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close("server shutting down")
	}
}
