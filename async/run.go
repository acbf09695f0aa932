package async

import "context"

// Run will run a function in a goroutine, returning its result via a channel.
func Run[T any](f func() T) <-chan T {
	c := make(chan T, 1)
	go func() {
		c <- f()
	}()
	return c
}

// Await returns the value from c. If ctx is done first, onDone is called (e.g. to stop listening for signals) and the
// value is still waited for, since the producer is expected to wind down on its own once ctx is done.
func Await[T any](ctx context.Context, c <-chan T, onDone func()) T {
	select {
	case v := <-c:
		return v
	case <-ctx.Done():
		if onDone != nil {
			onDone()
		}
		return <-c
	}
}
