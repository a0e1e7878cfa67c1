package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu     sync.Mutex
	bodies []string
	status int
}

func (s *sink) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		s.mu.Lock()
		s.bodies = append(s.bodies, body["content"])
		status := s.status
		s.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
		}
	}
}

func (s *sink) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

func TestWebhookDelivers(t *testing.T) {
	s := &sink{}
	srv := httptest.NewServer(s.handler(t))
	defer srv.Close()

	w := New(srv.URL, "main")
	w.Start()
	w.Start()
	w.Notify("Got kicked from the server 3 times.")

	require.Eventually(t, func() bool { return len(s.got()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"[main] Got kicked from the server 3 times."}, s.got())
	w.Stop()
	w.Stop()
}

func TestWebhookStopFlushesQueue(t *testing.T) {
	s := &sink{}
	srv := httptest.NewServer(s.handler(t))
	defer srv.Close()

	w := New(srv.URL, "")
	w.Notify("one")
	w.Notify("two")
	w.Start()
	w.Stop()

	assert.ElementsMatch(t, []string{"one", "two"}, s.got())
}

func TestWebhookDropsWhenFull(t *testing.T) {
	w := New("http://127.0.0.1:1/unused", "")
	for i := 0; i < queueSize+5; i++ {
		w.Notify("x")
	}
	assert.Equal(t, 5, w.Dropped())
}

func TestWebhookServerErrorDoesNotStopWorker(t *testing.T) {
	s := &sink{status: http.StatusTooManyRequests}
	srv := httptest.NewServer(s.handler(t))
	defer srv.Close()

	w := New(srv.URL, "")
	w.Start()
	defer w.Stop()
	w.Notify("a")
	w.Notify("b")

	require.Eventually(t, func() bool { return len(s.got()) == 2 }, 2*time.Second, 10*time.Millisecond)
}
