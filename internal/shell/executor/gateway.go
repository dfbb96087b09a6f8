package executor

import (
	"context"
	"log/slog"

	shellwords "github.com/mattn/go-shellwords"
)

// =============================================================================
// Gateway
// =============================================================================

// Target binds gateway operations to one environment: its compose target
// file, the resolved variable mapping, and the configured build options.
type Target struct {
	ComposeTarget string
	EnvVars       map[string]string
	BuildOptions  []string
}

// Gateway exposes the named lifecycle operations the engine sequences. Each
// method builds a structured request for the runner; none of them interpret
// output beyond the success flag.
type Gateway struct {
	runner Runner
	logger *slog.Logger
}

// NewGateway creates a gateway over the given runner.
func NewGateway(runner Runner, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{runner: runner, logger: logger.With("component", "gateway")}
}

// compose builds the argv prefix for a compose operation against the target.
func composeArgs(t Target, sub ...string) []string {
	args := []string{"compose", "-f", t.ComposeTarget}
	return append(args, sub...)
}

// appendService appends the optional single-service selector.
func appendService(args []string, service string) []string {
	if service != "" {
		args = append(args, service)
	}
	return args
}

func (g *Gateway) run(ctx context.Context, op string, t Target, args []string) Result {
	return g.runner.Run(ctx, Request{
		Op:   op,
		Bin:  "docker",
		Args: args,
		Env:  t.EnvVars,
	})
}

// Up starts services detached. An empty service starts everything.
func (g *Gateway) Up(ctx context.Context, t Target, service string) Result {
	return g.run(ctx, "up", t, appendService(composeArgs(t, "up", "-d"), service))
}

// Stop stops services without removing them.
func (g *Gateway) Stop(ctx context.Context, t Target, service string) Result {
	return g.run(ctx, "stop", t, appendService(composeArgs(t, "stop"), service))
}

// Restart restarts services.
func (g *Gateway) Restart(ctx context.Context, t Target, service string) Result {
	return g.run(ctx, "restart", t, appendService(composeArgs(t, "restart"), service))
}

// Remove force-removes stopped service containers.
func (g *Gateway) Remove(ctx context.Context, t Target, service string) Result {
	return g.run(ctx, "remove", t, appendService(composeArgs(t, "rm", "-f"), service))
}

// Build builds service images with the target's build options.
func (g *Gateway) Build(ctx context.Context, t Target, service string) Result {
	args := composeArgs(t, "build")
	args = append(args, t.BuildOptions...)
	return g.run(ctx, "build", t, appendService(args, service))
}

// Pull pulls service images.
func (g *Gateway) Pull(ctx context.Context, t Target, service string) Result {
	return g.run(ctx, "pull", t, appendService(composeArgs(t, "pull"), service))
}

// Logs fetches service logs.
func (g *Gateway) Logs(ctx context.Context, t Target, service string, follow bool) Result {
	args := composeArgs(t, "logs")
	if follow {
		args = append(args, "-f")
	}
	return g.run(ctx, "logs", t, appendService(args, service))
}

// Ps returns the human-readable service listing.
func (g *Gateway) Ps(ctx context.Context, t Target) Result {
	return g.run(ctx, "status", t, composeArgs(t, "ps"))
}

// PsJSON returns the service listing as JSON lines, the state dump the
// monitor and the backup snapshots consume.
func (g *Gateway) PsJSON(ctx context.Context, t Target) Result {
	return g.run(ctx, "status", t, composeArgs(t, "ps", "--format", "json"))
}

// =============================================================================
// Container Probes
// =============================================================================

// ContainerStatus asks the runtime for the free-text status of a container
// matched by name. Empty stdout means no such container.
func (g *Gateway) ContainerStatus(ctx context.Context, name string) Result {
	return g.runner.Run(ctx, Request{
		Op:   "container_status",
		Bin:  "docker",
		Args: []string{"ps", "--filter", "name=" + name, "--format", "{{.Status}}"},
	})
}

// ContainerHealth asks the runtime for the health-check verdict of a
// container. Containers without a configured health check fail the inspect
// template; the caller treats that as unknown.
func (g *Gateway) ContainerHealth(ctx context.Context, name string) Result {
	return g.runner.Run(ctx, Request{
		Op:   "container_health",
		Bin:  "docker",
		Args: []string{"inspect", "--format", "{{.State.Health.Status}}", name},
	})
}

// =============================================================================
// Hooks
// =============================================================================

// Hook runs one externally defined hook command. The command string is split
// into an argv with shell-style word rules, then executed directly: hooks get
// quoting semantics without a shell in the path.
func (g *Gateway) Hook(ctx context.Context, op string, t Target, command string) Result {
	words, err := shellwords.Parse(command)
	if err != nil || len(words) == 0 {
		g.logger.Warn("unparseable hook command", "op", op, "command", command, "error", err)
		return Result{Succeeded: false, Stderr: "unparseable hook command"}
	}
	return g.runner.Run(ctx, Request{
		Op:   op,
		Bin:  words[0],
		Args: words[1:],
		Env:  t.EnvVars,
	})
}
