package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sealdoc/sealdoc/internal/logger"
)

func TestProbeIsStableForProcessLifetime(t *testing.T) {
	p := NewProbe(logger.New("error", "json"))

	// Whatever the host reports, repeated calls must agree: the result is
	// cached on first use.
	first := p.HardwareAvailable()
	detail := p.Detail()
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, p.HardwareAvailable())
		assert.Equal(t, detail, p.Detail())
	}
	assert.NotEmpty(t, detail)
}

func TestProbeNeverPanics(t *testing.T) {
	p := NewProbe(logger.New("error", "json"))
	assert.NotPanics(t, func() {
		p.HardwareAvailable()
		p.Detail()
	})
}
