// Package dispatch serialises work per key while letting different keys run
// in parallel.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("dispatcher closed")

// Task is one unit of work for a key.
type Task func(ctx context.Context)

// Dispatcher runs tasks of the same key one at a time in submission order.
// A key has a goroutine only while it has queued work.
type Dispatcher struct {
	ctx    context.Context
	logger *zap.Logger

	mu        sync.Mutex
	mailboxes map[string][]Task
	closed    bool
	wg        sync.WaitGroup
}

// New returns a dispatcher whose tasks receive ctx.
func New(ctx context.Context, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		ctx:       ctx,
		logger:    logger,
		mailboxes: make(map[string][]Task),
	}
}

// Submit enqueues task for key and returns without waiting for it.
func (d *Dispatcher) Submit(key string, task Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	queue, active := d.mailboxes[key]
	d.mailboxes[key] = append(queue, task)
	if !active {
		d.wg.Add(1)
		go d.drain(key)
	}
	return nil
}

func (d *Dispatcher) drain(key string) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.mailboxes[key]
		if len(queue) == 0 {
			delete(d.mailboxes, key)
			d.mu.Unlock()
			return
		}
		task := queue[0]
		queue[0] = nil
		d.mailboxes[key] = queue[1:]
		d.mu.Unlock()

		d.run(key, task)
	}
}

func (d *Dispatcher) run(key string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("task panicked", zap.String("key", key), zap.Any("panic", r))
		}
	}()
	task(d.ctx)
}

// Active reports how many keys currently have queued or running work.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.mailboxes)
}

// Close stops accepting tasks and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
