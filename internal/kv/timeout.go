package kv

import (
	"context"
	"sync"
	"time"
)

// DefaultTimeout bounds a single storage call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

type timeoutStore struct {
	inner   Store
	timeout time.Duration

	mu       sync.Mutex
	inflight map[string]chan struct{} // closed when the key's call returns
	wg       sync.WaitGroup
}

// WithTimeout wraps s so that every call is bounded by d. A stalled backend
// fails with an Unavailable StorageError instead of blocking forever.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutStore{inner: s, timeout: d, inflight: make(map[string]chan struct{})}
}

// run executes fn in its own goroutine so that backends which ignore ctx
// still release the caller at the deadline. Calls on the same key are
// serialized: a call whose predecessor is still running after a timeout
// waits for it, and fails as Unavailable if its own deadline passes first,
// so a late write can never land on top of a newer one.
func (t *timeoutStore) run(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	release, err := t.acquire(ctx, op, key)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer release()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return unavailable(op, key, ctx.Err(), "timed out")
	}
}

func (t *timeoutStore) acquire(ctx context.Context, op, key string) (func(), error) {
	for {
		t.mu.Lock()
		busy, ok := t.inflight[key]
		if !ok {
			ch := make(chan struct{})
			t.inflight[key] = ch
			t.wg.Add(1)
			t.mu.Unlock()
			return func() {
				t.mu.Lock()
				delete(t.inflight, key)
				t.mu.Unlock()
				close(ch)
				t.wg.Done()
			}, nil
		}
		t.mu.Unlock()

		select {
		case <-busy:
		case <-ctx.Done():
			return nil, unavailable(op, key, ctx.Err(), "earlier call still running")
		}
	}
}

func (t *timeoutStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := t.run(ctx, "get", key, func(ctx context.Context) error {
		v, found, err := t.inner.Get(ctx, key)
		value, ok = v, found
		return err
	})
	if err != nil {
		return "", false, err
	}
	return value, ok, nil
}

func (t *timeoutStore) Set(ctx context.Context, key, value string) error {
	return t.run(ctx, "set", key, func(ctx context.Context) error {
		return t.inner.Set(ctx, key, value)
	})
}

func (t *timeoutStore) Remove(ctx context.Context, key string) error {
	return t.run(ctx, "remove", key, func(ctx context.Context) error {
		return t.inner.Remove(ctx, key)
	})
}

func (t *timeoutStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := t.run(ctx, "keys", "", func(ctx context.Context) error {
		k, err := t.inner.Keys(ctx, prefix)
		keys = k
		return err
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close waits for calls abandoned at their deadline, then closes the
// wrapped store.
func (t *timeoutStore) Close() error {
	t.wg.Wait()
	return t.inner.Close()
}

// Unwrap returns the wrapped store.
func (t *timeoutStore) Unwrap() Store { return t.inner }
