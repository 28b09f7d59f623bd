package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sealdoc/sealdoc/internal/config"
	"github.com/sealdoc/sealdoc/internal/logger"
)

// External drives the hardware provider as a child process, one invocation
// per operation. The contract: the child emits exactly one line of JSON on
// stdout carrying at least a Success boolean; everything else on stdout and
// stderr is diagnostic output that gets logged and never parsed.
type External struct {
	cfg config.ProviderConfig
	log *logger.Logger
}

// NewExternal creates the external provider adapter.
func NewExternal(cfg config.ProviderConfig, log *logger.Logger) *External {
	return &External{
		cfg: cfg,
		log: log.WithComponent("external_provider"),
	}
}

// Name identifies the adapter in logs. Key records carry the provider
// string self-reported by the scripts, not this value.
func (e *External) Name() string {
	return "external"
}

// result is the wire format of the one-line JSON contract.
type result struct {
	Success   bool   `json:"Success"`
	Handle    string `json:"Handle"`
	PublicKey string `json:"PublicKey"`
	Provider  string `json:"Provider"`
	Algorithm string `json:"Algorithm"`
	Signature string `json:"Signature"`
	Error     string `json:"Error"`
}

// CreateKey asks the provider to generate a new hardware-resident key.
func (e *External) CreateKey(ctx context.Context, keyName string) (*CreateResult, error) {
	res, err := e.run(ctx, "create", e.cfg.CreateScript, e.cfg.CreateTimeout,
		"-KeyName", keyName)
	if err != nil {
		return nil, err
	}

	if res.Handle == "" || res.PublicKey == "" {
		return nil, fmt.Errorf("%w: create result missing handle or public key", ErrProtocol)
	}

	return &CreateResult{
		Handle:    res.Handle,
		PublicKey: res.PublicKey,
		Provider:  res.Provider,
		Algorithm: res.Algorithm,
	}, nil
}

// Sign asks the provider to sign a document digest with the key behind
// req.Handle. The digest crosses the process boundary hex-encoded; private
// material never crosses it at all.
func (e *External) Sign(ctx context.Context, req SignRequest) ([]byte, error) {
	res, err := e.run(ctx, "sign", e.cfg.SignScript, e.cfg.SignTimeout,
		"-KeyName", req.KeyName,
		"-Handle", req.Handle,
		"-Hash", hex.EncodeToString(req.Digest))
	if err != nil {
		return nil, err
	}

	if res.Signature == "" {
		return nil, fmt.Errorf("%w: sign result missing signature", ErrProtocol)
	}

	sig, err := hex.DecodeString(res.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: signature is not hex: %v", ErrProtocol, err)
	}
	return sig, nil
}

// DeleteKey asks the provider to erase the key behind handle. A provider
// "not found" response surfaces as ErrKeyNotFound so deletion can treat it
// as already satisfied.
func (e *External) DeleteKey(ctx context.Context, keyName, handle string) error {
	_, err := e.run(ctx, "delete", e.cfg.DeleteScript, e.cfg.DeleteTimeout,
		"-KeyName", keyName,
		"-Handle", handle)
	return err
}

// run invokes one provider script and parses its single-line JSON result.
func (e *External) run(ctx context.Context, op, script string, timeout time.Duration, args ...string) (*result, error) {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	scriptPath := filepath.Join(e.cfg.ScriptDir, script)
	cmdArgs := append(append([]string{}, e.cfg.InterpreterArgs...), scriptPath)
	cmdArgs = append(cmdArgs, args...)

	// CommandContext kills the child when the timeout expires, so a hung
	// provider never leaks a subprocess.
	cmd := exec.CommandContext(opCtx, e.cfg.Interpreter, cmdArgs...)
	// Orphaned grandchildren can hold the stdout pipe open after the
	// interpreter is killed; don't let them stall the call.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if stderr.Len() > 0 {
		e.log.Debug().Str("op", op).Str("stderr", strings.TrimSpace(stderr.String())).Msg("provider diagnostics")
	}

	if opCtx.Err() == context.DeadlineExceeded {
		e.log.Warn().Str("op", op).Dur("elapsed", elapsed).Msg("provider call timed out, subprocess killed")
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, op, timeout)
	}

	res, found := extractResult(stdout.Bytes())
	if !found {
		if runErr != nil {
			e.log.Warn().Err(runErr).Str("op", op).Msg("provider exited without result line")
		}
		return nil, fmt.Errorf("%w: no result line in %s output", ErrProtocol, op)
	}

	if !res.Success {
		if isNotFoundMessage(res.Error) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, res.Error)
		}
		return nil, &OperationError{Op: op, Message: res.Error}
	}

	e.log.Debug().Str("op", op).Dur("elapsed", elapsed).Msg("provider call succeeded")
	return res, nil
}

// extractResult scans output for the first line that begins with "{" and
// carries the Success key. All other lines are diagnostics.
func extractResult(output []byte) (*result, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") || !strings.Contains(line, `"Success"`) {
			continue
		}
		var res result
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			// A line that looks like the result but does not parse is a
			// protocol violation, not a diagnostic to skip.
			return nil, false
		}
		return &res, true
	}
	return nil, false
}

// isNotFoundMessage maps the provider's error text onto the typed
// not-found error at this boundary, so no caller ever string-matches.
// NTE_BAD_KEYSET is what CNG-based providers report for missing keys.
func isNotFoundMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "not found") ||
		strings.Contains(lower, "no such key") ||
		strings.Contains(lower, "nte_bad_keyset")
}

var _ Provider = (*External)(nil)
