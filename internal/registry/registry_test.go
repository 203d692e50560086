package registry

import (
	"context"
	"sort"
	"testing"

	"github.com/tuneroom/live-service/internal/domain"
	"github.com/tuneroom/live-service/internal/protocol"
)

type nopSender struct{}

func (nopSender) Send(protocol.Event) error { return nil }

type stubVerifier struct {
	users map[string]string
}

func (v stubVerifier) Verify(_ context.Context, token string) (string, error) {
	if uid, ok := v.users[token]; ok {
		return uid, nil
	}
	return "", domain.ErrUnauthorized
}

func newTestRegistry() *Registry {
	return New(stubVerifier{users: map[string]string{
		"tok-1": "u1",
		"tok-2": "u2",
	}})
}

func TestRegistry_AuthenticateAndLookup(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	c1 := r.Register(nopSender{})
	if r.UserOf(c1) != "" {
		t.Fatal("fresh connection must be unauthenticated")
	}

	uid, err := r.Authenticate(ctx, c1, "tok-1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if uid != "u1" || r.UserOf(c1) != "u1" {
		t.Fatalf("got uid %q / %q, want u1", uid, r.UserOf(c1))
	}

	if _, err := r.Authenticate(ctx, c1, "bad-token"); err == nil {
		t.Fatal("expected error for bad token")
	}
	if _, err := r.Authenticate(ctx, "no-such-conn", "tok-1"); err == nil {
		t.Fatal("expected error for unknown connection")
	}
}

func TestRegistry_ConnectionsForAllSessions(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	c1 := r.Register(nopSender{})
	c2 := r.Register(nopSender{})
	c3 := r.Register(nopSender{})
	mustAuth(t, r, ctx, c1, "tok-1")
	mustAuth(t, r, ctx, c2, "tok-1")
	mustAuth(t, r, ctx, c3, "tok-2")

	got := r.ConnectionsFor("u1")
	sort.Strings(got)
	want := []string{c1, c2}
	sort.Strings(want)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("ConnectionsFor(u1) = %v, want %v", got, want)
	}
	if conns := r.ConnectionsFor("nobody"); conns != nil {
		t.Fatalf("ConnectionsFor(nobody) = %v, want nil", conns)
	}
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	c1 := r.Register(nopSender{})
	mustAuth(t, r, ctx, c1, "tok-1")
	r.TrackJoin(c1, "jazz")
	r.TrackJoin(c1, "blues")

	uid, rooms, ok := r.Unregister(c1)
	if !ok || uid != "u1" {
		t.Fatalf("first Unregister = (%q, %v), want u1/ok", uid, ok)
	}
	sort.Strings(rooms)
	if len(rooms) != 2 || rooms[0] != "blues" || rooms[1] != "jazz" {
		t.Fatalf("rooms = %v", rooms)
	}

	if _, _, ok := r.Unregister(c1); ok {
		t.Fatal("second Unregister must report ok=false")
	}
	if conns := r.ConnectionsFor("u1"); conns != nil {
		t.Fatalf("user index not cleaned: %v", conns)
	}
	if _, ok := r.SenderOf(c1); ok {
		t.Fatal("sender must be gone after Unregister")
	}
}

func TestRegistry_TrackLeave(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	c1 := r.Register(nopSender{})
	mustAuth(t, r, ctx, c1, "tok-1")
	r.TrackJoin(c1, "jazz")
	r.TrackLeave(c1, "jazz")

	_, rooms, _ := r.Unregister(c1)
	if len(rooms) != 0 {
		t.Fatalf("rooms = %v, want empty", rooms)
	}
}

func mustAuth(t *testing.T, r *Registry, ctx context.Context, connID, token string) {
	t.Helper()
	if _, err := r.Authenticate(ctx, connID, token); err != nil {
		t.Fatalf("Authenticate(%s): %v", token, err)
	}
}
