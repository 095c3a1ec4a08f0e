package googletasks

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/dori/todosync/internal/debug"
	"github.com/dori/todosync/internal/model"
	tasksync "github.com/dori/todosync/internal/sync"
)

// subscription polls a list and emits a snapshot whenever it changed
type subscription struct {
	ch     chan model.Collection
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe starts polling the list. The first snapshot is sent right away.
func (c *Client) Subscribe(ctx context.Context, listID string) (tasksync.Subscription, error) {
	items, err := c.listAll(ctx, listID)
	if err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &subscription{
		ch:     make(chan model.Collection, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(pollCtx, c, listID, items)
	return s, nil
}

func (s *subscription) run(ctx context.Context, c *Client, listID string, items []*tasks.Task) {
	defer close(s.done)
	defer close(s.ch)

	last := fingerprint(items)
	if !s.emit(ctx, toCollection(items)) {
		return
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		items, err := c.listAll(ctx, listID)
		if err != nil {
			debug.Log("googletasks: poll failed: %v", err)
			continue
		}
		fp := fingerprint(items)
		if fp == last {
			continue
		}
		last = fp
		if !s.emit(ctx, toCollection(items)) {
			return
		}
	}
}

func (s *subscription) emit(ctx context.Context, snap model.Collection) bool {
	select {
	case s.ch <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *subscription) Snapshots() <-chan model.Collection {
	return s.ch
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

// fingerprint hashes what the snapshot is built from
func fingerprint(items []*tasks.Task) uint64 {
	h := xxhash.New()
	for _, item := range items {
		h.WriteString(item.Id)
		h.WriteString(item.Etag)
		h.WriteString(item.Updated)
		h.WriteString(item.Position)
		h.WriteString("\x00")
	}
	return h.Sum64()
}
