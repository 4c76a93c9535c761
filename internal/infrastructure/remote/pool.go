package remote

import "context"

// Pool bounds the number of blocking remote I/O operations running at once.
// SSH and SFTP calls block an OS thread for their duration; without a bound,
// enough concurrent jobs could exhaust the process. One pool is shared by
// every SSH client in the process.
type Pool struct {
	slots chan struct{}
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = 10
	}
	return &Pool{slots: make(chan struct{}, size)}
}

// Run executes fn on the current goroutine once a slot is free. It returns
// the context error if ctx is cancelled before a slot opens.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.slots }()
	return fn()
}
