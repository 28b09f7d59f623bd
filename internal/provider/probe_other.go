//go:build !linux && !windows

// No hardware provider is supported on other platforms; all checks are
// negative and key creation degrades to the software path.

package provider

func probeTransport() bool         { return false }
func probeDeviceNode() bool        { return false }
func probePlatformHeuristic() bool { return false }
