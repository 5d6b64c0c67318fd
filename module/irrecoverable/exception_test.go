package irrecoverable_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shardchain/node/module/irrecoverable"
)

var sentinel = errors.New("sentinel")

func TestException(t *testing.T) {
	assert.NoError(t, irrecoverable.NewException(nil))

	err := irrecoverable.NewExceptionf("decoding value: %w", sentinel)
	assert.True(t, irrecoverable.IsException(err))
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "decoding value: sentinel", err.Error())

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, irrecoverable.IsException(wrapped))

	assert.False(t, irrecoverable.IsException(sentinel))
}
