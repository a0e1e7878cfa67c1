// Package notify forwards bot errors to a chat webhook (Discord-compatible
// JSON body {"content": "..."}).
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

const queueSize = 64

// Webhook posts messages from a background worker. Notify never blocks; when
// the queue is full the message is dropped.
type Webhook struct {
	http   *http.Client
	url    string
	prefix string

	queue chan string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	dropped int
}

// New returns a webhook for url. prefix is put in front of every message,
// e.g. the account name.
func New(url, prefix string) *Webhook {
	return &Webhook{
		http:   &http.Client{Timeout: 10 * time.Second},
		url:    url,
		prefix: prefix,
		queue:  make(chan string, queueSize),
	}
}

// Start launches the worker. Calling it again is a no-op.
func (w *Webhook) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stop := w.stopCh

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case msg := <-w.queue:
				if err := w.post(context.Background(), msg); err != nil {
					log.Printf("notify: %v", err)
				}
			case <-stop:
				w.drain()
				return
			}
		}
	}()
}

// drain sends what is still queued, bounded by a short deadline.
func (w *Webhook) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-w.queue:
			if err := w.post(ctx, msg); err != nil {
				log.Printf("notify: %v", err)
			}
		default:
			return
		}
	}
}

// Stop flushes the queue and waits for the worker. Safe to call twice.
func (w *Webhook) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.running = false
	w.mu.Unlock()
	w.wg.Wait()
}

// Notify queues text for delivery.
func (w *Webhook) Notify(text string) {
	if w.prefix != "" {
		text = "[" + w.prefix + "] " + text
	}
	select {
	case w.queue <- text:
	default:
		w.mu.Lock()
		w.dropped++
		w.mu.Unlock()
	}
}

// Dropped counts messages lost to a full queue.
func (w *Webhook) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

func (w *Webhook) post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
