// Package executor is the process-execution boundary. Every container
// runtime operation travels through it as a structured request: a binary
// plus an argument vector plus an explicit environment mapping. Nothing is
// ever passed through a shell.
package executor

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// =============================================================================
// Request / Result
// =============================================================================

// Request is one structured operation for the runner.
type Request struct {
	// Op names the operation for logging and failure reporting ("pull",
	// "up", "pre_deploy_hook", ...). It carries no execution semantics.
	Op string

	// Bin and Args form the argv. Args are passed verbatim; there is no
	// shell interpretation and no quoting concern.
	Bin  string
	Args []string

	// Env is the explicit environment overlay for this invocation, merged
	// over the process environment. The runner never reads ambient
	// configuration beyond that.
	Env map[string]string
}

// Result is the outcome of a request. A non-zero exit is not an error: it is
// reported through Succeeded and interpreted by the caller.
type Result struct {
	Succeeded bool
	Stdout    string
	Stderr    string
}

// Runner executes requests. The engine depends on this interface; tests
// substitute fakes that record call order.
type Runner interface {
	Run(ctx context.Context, req Request) Result
}

// =============================================================================
// CLI Runner
// =============================================================================

// CLIRunner runs requests as local subprocesses.
type CLIRunner struct {
	logger *slog.Logger
}

// NewCLIRunner creates a runner. A nil logger falls back to slog.Default.
func NewCLIRunner(logger *slog.Logger) *CLIRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIRunner{logger: logger.With("component", "executor")}
}

// Run executes the request and captures its output. Command failure of any
// kind (non-zero exit, missing binary, canceled context) yields a Result
// with Succeeded=false; Run never returns an error.
func (r *CLIRunner) Run(ctx context.Context, req Request) Result {
	cmd := exec.CommandContext(ctx, req.Bin, req.Args...)
	cmd.Env = mergeEnv(os.Environ(), req.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("executing", "op", req.Op, "bin", req.Bin, "args", req.Args)

	err := cmd.Run()
	result := Result{
		Succeeded: err == nil,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
	}
	if err != nil {
		r.logger.Warn("operation failed",
			"op", req.Op,
			"bin", req.Bin,
			"error", err,
			"stderr", result.Stderr,
		)
	}
	return result
}

// mergeEnv overlays explicit variables onto the base KEY=VALUE list.
// Explicit values win over inherited ones.
func mergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := overlay[key]; !overridden {
			out = append(out, kv)
		}
	}
	for k, v := range overlay {
		out = append(out, k+"="+v)
	}
	return out
}
