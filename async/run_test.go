package async

import (
	"context"
	"errors"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	assert := assert_.New(t)
	a := <-Run(func() int {
		return 123
	})
	assert.Equal(123, a)
}

func TestAwait(t *testing.T) {
	assert := assert_.New(t)

	err := Await(context.Background(), Run(func() error { return nil }), func() { t.Error("onDone called") })
	assert.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	result := Run(func() error {
		<-release
		return ctx.Err()
	})
	cancel()
	called := false
	err = Await(ctx, result, func() {
		called = true
		close(release)
	})
	assert.True(called)
	assert.True(errors.Is(err, context.Canceled))
}
