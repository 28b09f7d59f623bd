//go:build linux

// Platform probe checks for Linux. The kernel exposes TPM 2.0 devices
// through /dev/tpmrm0 (resource manager) or /dev/tpm0 (direct access).

package provider

import (
	"os"

	"github.com/google/go-tpm/tpm2/transport"
)

var tpmDevicePaths = []string{
	"/dev/tpmrm0", // TPM Resource Manager (preferred)
	"/dev/tpm0",   // Direct TPM access (fallback)
}

// probeTransport opens the TPM transport and closes it again.
func probeTransport() bool {
	for _, path := range tpmDevicePaths {
		t, err := transport.OpenTPM(path)
		if err == nil {
			t.Close()
			return true
		}
	}
	return false
}

// probeDeviceNode checks whether a TPM device node exists and is openable.
func probeDeviceNode() bool {
	for _, path := range tpmDevicePaths {
		if _, err := os.Stat(path); err == nil {
			f, err := os.OpenFile(path, os.O_RDWR, 0)
			if err == nil {
				f.Close()
				return true
			}
		}
	}
	return false
}

// probePlatformHeuristic enumerates the sysfs TPM class. Entries here mean
// a TPM exists even when the device node is locked down.
func probePlatformHeuristic() bool {
	entries, err := os.ReadDir("/sys/class/tpm")
	if err != nil {
		return false
	}
	return len(entries) > 0
}
