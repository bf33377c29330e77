package core_test

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chatcore/internal/chat"
	"chatcore/internal/core"
	"chatcore/internal/events"
	"chatcore/internal/registry"
	"chatcore/internal/store/memstore"
)

// recorder captures every frame sent to a connection so tests can assert
// on delivered events.
type recorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recorder) Send(msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	frame := make([]byte, len(msg))
	copy(frame, msg)
	r.frames = append(r.frames, frame)
}

func (r *recorder) Close(err error) {}

func (r *recorder) envelopes(t *testing.T) []events.Envelope {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]events.Envelope, 0, len(r.frames))
	for _, frame := range r.frames {
		var env events.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		out = append(out, env)
	}
	return out
}

func (r *recorder) names(t *testing.T) []string {
	t.Helper()
	envs := r.envelopes(t)
	names := make([]string, len(envs))
	for i, env := range envs {
		names[i] = env.Event
	}
	return names
}

func (r *recorder) count(t *testing.T, event string) int {
	t.Helper()
	n := 0
	for _, name := range r.names(t) {
		if name == event {
			n++
		}
	}
	return n
}

// payload decodes the first occurrence of event into dst.
func (r *recorder) payload(t *testing.T, event string, dst any) {
	t.Helper()
	for _, env := range r.envelopes(t) {
		if env.Event == event {
			require.NoError(t, json.Unmarshal(env.Payload, dst))
			return
		}
	}
	t.Fatalf("event %q was not delivered; got %v", event, r.names(t))
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
}

type fixture struct {
	t    *testing.T
	core *core.Core
	st   *memstore.Store
	reg  *registry.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	st := memstore.New()
	reg := registry.New(logger)
	return &fixture{
		t:    t,
		core: core.New(st, reg, logger),
		st:   st,
		reg:  reg,
	}
}

// connect registers a live connection for the user and returns it with
// its frame recorder.
func (f *fixture) connect(user chat.User) (*registry.Conn, *recorder) {
	f.t.Helper()
	rec := &recorder{}
	conn := &registry.Conn{
		ID:        uuid.New(),
		Identity:  user,
		Transport: rec,
		CreatedAt: time.Now(),
	}
	f.reg.Register(conn)
	return conn, rec
}
