package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelayDoublesAndCaps(t *testing.T) {
	w := &Worker{backoff: time.Second}

	assert.Equal(t, time.Second, w.retryDelay(1))
	assert.Equal(t, 2*time.Second, w.retryDelay(2))
	assert.Equal(t, 4*time.Second, w.retryDelay(3))
	assert.Equal(t, 16*time.Second, w.retryDelay(5))

	// Beyond the cap every attempt waits the same
	assert.Equal(t, maxRetryDelay, w.retryDelay(10))
	assert.Equal(t, maxRetryDelay, w.retryDelay(50))
}
