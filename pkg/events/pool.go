package events

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	errNotConnected = errors.New("rabbitmq publisher not connected")
	errPoolClosed   = errors.New("channel pool closed")
	errConnClosed   = errors.New("amqp connection closed")
)

// pooled is the part of *amqp.Channel the pool manages.
type pooled interface {
	IsClosed() bool
	Close() error
}

// channelPool keeps at most capacity channels open. permits tracks idle plus
// borrowed channels. mu orders returns against close so a channel is never
// sent on a closed idle queue.
type channelPool[C pooled] struct {
	open    func() (C, error)
	idle    chan C
	permits chan struct{}

	mu     sync.Mutex
	closed bool
}

func newChannelPool[C pooled](open func() (C, error), capacity int) *channelPool[C] {
	return &channelPool[C]{
		open:    open,
		idle:    make(chan C, capacity),
		permits: make(chan struct{}, capacity),
	}
}

// amqpOpener serializes channel creation on conn.
func amqpOpener(conn *amqp.Connection) func() (*amqp.Channel, error) {
	var mu sync.Mutex
	return func() (*amqp.Channel, error) {
		mu.Lock()
		defer mu.Unlock()

		if conn.IsClosed() {
			return nil, errConnClosed
		}
		return conn.Channel()
	}
}

func (p *channelPool[C]) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *channelPool[C]) borrow(ctx context.Context) (C, error) {
	var zero C
	if p.isClosed() {
		return zero, errPoolClosed
	}

	select {
	case ch, ok := <-p.idle:
		if !ok {
			return zero, errPoolClosed
		}
		if ch.IsClosed() {
			return p.reopen()
		}
		return ch, nil
	default:
	}

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case p.permits <- struct{}{}:
		ch, err := p.open()
		if err != nil {
			<-p.permits
			return zero, err
		}
		return ch, nil
	case ch, ok := <-p.idle:
		if !ok {
			return zero, errPoolClosed
		}
		if ch.IsClosed() {
			return p.reopen()
		}
		return ch, nil
	}
}

func (p *channelPool[C]) put(ch C) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || ch.IsClosed() {
		_ = ch.Close()
		p.release()
		return
	}

	select {
	case p.idle <- ch:
	default:
		_ = ch.Close()
		p.release()
	}
}

func (p *channelPool[C]) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.idle)
	p.mu.Unlock()

	for ch := range p.idle {
		_ = ch.Close()
		p.release()
	}
}

// reopen replaces a dead channel while keeping its permit.
func (p *channelPool[C]) reopen() (C, error) {
	ch, err := p.open()
	if err != nil {
		p.release()
		var zero C
		return zero, err
	}
	return ch, nil
}

func (p *channelPool[C]) release() {
	select {
	case <-p.permits:
	default:
	}
}
