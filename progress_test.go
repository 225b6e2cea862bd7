package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressGateByteInterval(t *testing.T) {
	g := newProgressGate(100)
	assert.False(t, g.shouldNotify(50, false), "under interval should not notify")
	assert.True(t, g.shouldNotify(150, false), "crossing interval should notify")
	assert.False(t, g.shouldNotify(200, false), "small step after notify should not re-notify")
}

func TestProgressGateFinalBypasses(t *testing.T) {
	g := newProgressGate(1 << 30) // huge interval, would never fire otherwise
	assert.True(t, g.shouldNotify(1, true))
}

func TestProgressGateDefaultsIntervalWhenZero(t *testing.T) {
	g := newProgressGate(0)
	assert.Equal(t, int64(1<<20), g.intervalBytes)
}
