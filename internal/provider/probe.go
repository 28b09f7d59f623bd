package provider

import (
	"sync"

	"github.com/sealdoc/sealdoc/internal/logger"
)

// Probe detects hardware provider availability. The result is computed on
// first use and cached for the process lifetime; requests never re-probe.
// A failing probe degrades capability, it never errors the caller.
type Probe struct {
	log  *logger.Logger
	once sync.Once

	available bool
	detail    string
}

// NewProbe creates an unevaluated probe.
func NewProbe(log *logger.Logger) *Probe {
	return &Probe{log: log.WithComponent("provider_probe")}
}

// HardwareAvailable reports whether the hardware provider can be used.
func (p *Probe) HardwareAvailable() bool {
	p.once.Do(p.run)
	return p.available
}

// Detail returns a short description of which check decided the result.
func (p *Probe) Detail() string {
	p.once.Do(p.run)
	return p.detail
}

func (p *Probe) run() {
	// Three ordered checks, most reliable first. The first success wins;
	// if all fail the hardware path is disabled for this process.
	checks := []struct {
		name string
		fn   func() bool
	}{
		{"tpm_transport", probeTransport},
		{"device_node", probeDeviceNode},
		{"platform_heuristic", probePlatformHeuristic},
	}

	for _, c := range checks {
		ok := func() (ok bool) {
			// A misbehaving platform check must degrade, not crash.
			defer func() {
				if r := recover(); r != nil {
					p.log.Warn().Interface("panic", r).Str("check", c.name).Msg("probe check panicked")
					ok = false
				}
			}()
			return c.fn()
		}()
		if ok {
			p.available = true
			p.detail = c.name
			p.log.Info().Str("check", c.name).Msg("hardware provider detected")
			return
		}
		p.log.Debug().Str("check", c.name).Msg("probe check negative")
	}

	p.available = false
	p.detail = "none"
	p.log.Info().Msg("no hardware provider detected, software keys only")
}
