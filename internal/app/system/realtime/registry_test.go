package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeConn struct {
	mu      sync.Mutex
	sent    []ServerFrame
	closed  bool
	sendErr error
}

func (f *fakeConn) Send(_ context.Context, fr ServerFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, fr)
	return nil
}

func (f *fakeConn) Close(string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegistry_ReplaceClosesPrevious(t *testing.T) {
	reg := NewRegistry(nil)
	uid := primitive.NewObjectID()
	first, second := &fakeConn{}, &fakeConn{}

	reg.Register(uid, first)
	reg.Register(uid, second)

	if !first.isClosed() {
		t.Error("previous connection should be closed")
	}
	if second.isClosed() {
		t.Error("new connection should stay open")
	}
	if c, _ := reg.Lookup(uid); c != second {
		t.Error("last registration should win")
	}
}

func TestRegistry_UnregisterOnlyExactConn(t *testing.T) {
	reg := NewRegistry(nil)
	uid := primitive.NewObjectID()
	stale, live := &fakeConn{}, &fakeConn{}

	reg.Register(uid, stale)
	reg.Register(uid, live)

	if reg.Unregister(uid, stale) {
		t.Error("stale connection must not unregister its replacement")
	}
	if _, ok := reg.Lookup(uid); !ok {
		t.Fatal("live connection was removed")
	}
	if !reg.Unregister(uid, live) {
		t.Error("live connection should unregister")
	}
	if reg.Len() != 0 {
		t.Errorf("Len = %d, want 0", reg.Len())
	}
}

func TestRegistry_Push(t *testing.T) {
	reg := NewRegistry(nil)
	ctx := context.Background()
	uid := primitive.NewObjectID()

	ok, err := reg.Push(ctx, uid, "x")
	if ok || err != nil {
		t.Errorf("Push to offline user = (%v, %v), want (false, nil)", ok, err)
	}

	c := &fakeConn{}
	reg.Register(uid, c)
	ok, err = reg.Push(ctx, uid, map[string]string{"title": "hi"})
	if !ok || err != nil {
		t.Fatalf("Push = (%v, %v)", ok, err)
	}
	if len(c.sent) != 1 || c.sent[0].Type != TypeNotification {
		t.Errorf("sent = %+v", c.sent)
	}
}

func TestRegistry_PushFailureDropsConn(t *testing.T) {
	reg := NewRegistry(nil)
	uid := primitive.NewObjectID()
	c := &fakeConn{sendErr: errors.New("broken pipe")}
	reg.Register(uid, c)

	if ok, err := reg.Push(context.Background(), uid, "x"); ok || err == nil {
		t.Errorf("Push = (%v, %v), want failure", ok, err)
	}
	if _, ok := reg.Lookup(uid); ok {
		t.Error("failed connection should be unregistered")
	}
	if !c.isClosed() {
		t.Error("failed connection should be closed")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry(nil)
	uid := primitive.NewObjectID()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			reg.Register(uid, c)
			reg.Unregister(uid, c)
		}()
		go func() {
			defer wg.Done()
			_, _ = reg.Push(context.Background(), uid, "x")
		}()
	}
	wg.Wait()
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := NewRegistry(nil)
	a, b := &fakeConn{}, &fakeConn{}
	reg.Register(primitive.NewObjectID(), a)
	reg.Register(primitive.NewObjectID(), b)

	reg.CloseAll()

	if !a.isClosed() || !b.isClosed() || reg.Len() != 0 {
		t.Error("CloseAll should close and forget every connection")
	}
}
