package procedurelab

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// runLab starts lab in the background and returns a stop function that
// cancels it and waits for Start to return.
func runLab(t *testing.T, lab *Lab) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- lab.Start(ctx)
	}()
	waitForServer(t, lab.Port(), 2*time.Second)

	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Start() did not return after cancel")
		}
	}
}

// do sends a request through the Lab's handler, which shares its store.
func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// lockedBuffer is a bytes.Buffer safe for the server's shutdown goroutine to
// log into while the test reads it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// changeCollector records callback invocations.
type changeCollector struct {
	mu      sync.Mutex
	changes []ItemChange
}

func (c *changeCollector) record(ch ItemChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, ch)
}

func (c *changeCollector) snapshot() []ItemChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ItemChange(nil), c.changes...)
}

func (c *changeCollector) waitForCount(t *testing.T, n int) []ItemChange {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := c.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	got := c.snapshot()
	t.Fatalf("got %d changes, want %d", len(got), n)
	return got
}

func TestWithChangeCallback_ReceivesMutations(t *testing.T) {
	var collector changeCollector

	lab, err := New(
		WithPort(19200),
		WithChangeCallback(collector.record),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := runLab(t, lab)
	defer stop()

	h := lab.Handler()
	do(t, h, http.MethodPut, "/items/foo", `{"x":1}`)
	do(t, h, http.MethodPatch, "/items/foo", `{"y":2}`)
	do(t, h, http.MethodDelete, "/items/foo", "")

	changes := collector.waitForCount(t, 3)

	wantOps := []ChangeOp{ChangeCreated, ChangeUpdated, ChangeDeleted}
	for i, want := range wantOps {
		if changes[i].Op != want {
			t.Errorf("change %d op = %s, want %s", i, changes[i].Op, want)
		}
		if changes[i].Key != "foo" {
			t.Errorf("change %d key = %q, want foo", i, changes[i].Key)
		}
		if changes[i].At.IsZero() {
			t.Errorf("change %d has zero timestamp", i)
		}
	}

	updated, ok := changes[1].Value.(map[string]any)
	if !ok {
		t.Fatalf("updated value type = %T, want map[string]any", changes[1].Value)
	}
	if updated["x"] != 1.0 || updated["y"] != 2.0 {
		t.Errorf("updated value = %v, want map[x:1 y:2]", updated)
	}
	if changes[2].Value != nil {
		t.Errorf("deleted value = %v, want nil", changes[2].Value)
	}
}

func TestWithChangeCallback_NotInvokedForFailedMutations(t *testing.T) {
	var collector changeCollector

	lab, err := New(
		WithPort(19201),
		WithChangeCallback(collector.record),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := runLab(t, lab)
	defer stop()

	h := lab.Handler()
	do(t, h, http.MethodPatch, "/items/missing", `{"y":2}`)
	do(t, h, http.MethodDelete, "/items/missing", "")
	do(t, h, http.MethodPut, "/items/bad", `{not json`)

	// a successful mutation afterwards proves the feed is live
	do(t, h, http.MethodPut, "/items/ok", `true`)

	changes := collector.waitForCount(t, 1)
	if len(changes) != 1 || changes[0].Key != "ok" {
		t.Errorf("changes = %+v, want only the create of \"ok\"", changes)
	}
}

func TestWithChangeCallback_ValueIsCopy(t *testing.T) {
	var first, second changeCollector

	lab, err := New(
		WithPort(19202),
		WithChangeCallback(func(ch ItemChange) {
			// mutating the delivered value must not reach the store
			if m, ok := ch.Value.(map[string]any); ok {
				m["x"] = "mutated"
			}
			first.record(ch)
		}),
		WithChangeCallback(second.record),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := runLab(t, lab)
	defer stop()

	h := lab.Handler()
	do(t, h, http.MethodPut, "/items/k", `{"x":1}`)

	second.waitForCount(t, 1)

	rec := do(t, h, http.MethodGet, "/items/k", "")
	if !strings.Contains(rec.Body.String(), `"x":1`) {
		t.Errorf("store value changed by callback: %s", rec.Body.String())
	}
}

func TestWithChangeCallback_PanicRecovery(t *testing.T) {
	var buf lockedBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var after changeCollector

	lab, err := New(
		WithPort(19203),
		WithLogger(logger),
		WithChangeCallback(func(ItemChange) { panic("boom") }),
		WithChangeCallback(after.record),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := runLab(t, lab)

	h := lab.Handler()
	do(t, h, http.MethodPut, "/items/a", `1`)
	do(t, h, http.MethodPut, "/items/b", `2`)

	// later callbacks and later changes still run after a panic
	after.waitForCount(t, 2)
	stop()

	if !strings.Contains(buf.String(), "change callback panicked") {
		t.Errorf("expected panic to be logged, got: %s", buf.String())
	}
}

func TestInvokeCallbackSafe_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	invokeCallbackSafe(func(ItemChange) { panic("bad") }, ItemChange{Key: "k"}, logger)

	out := buf.String()
	if !strings.Contains(out, "change callback panicked") || !strings.Contains(out, "key=k") {
		t.Errorf("unexpected log output: %s", out)
	}
}
