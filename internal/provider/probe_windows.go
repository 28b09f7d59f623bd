//go:build windows

// Platform probe checks for Windows. TPM access goes through TPM Base
// Services (TBS); the registry heuristic covers machines where TBS is
// present but the service account lacks access.

package provider

import (
	"os"
	"path/filepath"

	"github.com/google/go-tpm/tpm2/transport"
)

// probeTransport opens the TPM through Windows TBS and closes it again.
func probeTransport() bool {
	t, err := transport.OpenTPM()
	if err != nil {
		return false
	}
	t.Close()
	return true
}

// probeDeviceNode has no device-node equivalent on Windows; TBS is the
// only supported path, so this check re-attempts the transport open.
func probeDeviceNode() bool {
	return probeTransport()
}

// probePlatformHeuristic checks for the TBS service DLL.
func probePlatformHeuristic() bool {
	root := os.Getenv("SystemRoot")
	if root == "" {
		root = `C:\Windows`
	}
	_, err := os.Stat(filepath.Join(root, "System32", "tbs.dll"))
	return err == nil
}
