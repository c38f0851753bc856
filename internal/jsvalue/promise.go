package jsvalue

import (
	"context"
	"errors"
	"sync"
)

// ErrPromisePending is returned by Settled for promises that have not
// settled yet.
var ErrPromisePending = errors.New("promise is still pending")

type promiseState struct {
	once  sync.Once
	done  chan struct{}
	value Value
	err   error
}

func (p *promiseState) settle(v Value, err error) {
	p.once.Do(func() {
		p.value = v
		p.err = err
		close(p.done)
	})
}

// Resolve fulfils a pending promise. Later calls are ignored.
func (o *Object) Resolve(v Value) {
	if o.promise != nil {
		o.promise.settle(v, nil)
	}
}

// Reject rejects a pending promise. Later calls are ignored.
func (o *Object) Reject(err error) {
	if o.promise != nil {
		if err == nil {
			err = errors.New("promise rejected")
		}
		o.promise.settle(nil, err)
	}
}

// Await blocks until the promise settles or ctx is done.
func (o *Object) Await(ctx context.Context) (Value, error) {
	if o.promise == nil {
		return o, nil
	}
	select {
	case <-o.promise.done:
		return o.promise.value, o.promise.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settled returns the outcome without blocking.
func (o *Object) Settled() (Value, error) {
	if o.promise == nil {
		return o, nil
	}
	select {
	case <-o.promise.done:
		return o.promise.value, o.promise.err
	default:
		return nil, ErrPromisePending
	}
}
