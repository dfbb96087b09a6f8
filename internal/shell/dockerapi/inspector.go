// Package dockerapi talks to the container runtime over its API socket. The
// health monitor prefers it over CLI probes when a connection is available,
// and degrades to the executor gateway when it is not.
package dockerapi

import (
	"context"
	"errors"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// ErrNoSuchContainer is returned when no container matches the name.
var ErrNoSuchContainer = errors.New("no such container")

// ContainerState is the inspector's view of one container.
type ContainerState struct {
	Running bool
	Health  string // raw health verdict, "" when no health check is configured
	Status  string // human-readable status line, e.g. "Up 2 hours (healthy)"
}

// Inspector answers container state questions. The health monitor depends on
// this interface; production uses the API client, tests use fakes.
type Inspector interface {
	ContainerState(ctx context.Context, name string) (ContainerState, error)
}

// =============================================================================
// API Client
// =============================================================================

// Client implements Inspector over the runtime API.
type Client struct {
	cli    *client.Client
	logger *slog.Logger
}

// NewClient connects to the runtime API. An empty host uses the environment
// defaults.
func NewClient(host string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}

	return &Client{cli: cli, logger: logger.With("component", "dockerapi")}, nil
}

// Ping verifies the API connection.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.cli.Ping(ctx)
	return err
}

// Close releases the API connection.
func (c *Client) Close() error {
	return c.cli.Close()
}

// ContainerState inspects the first container whose name matches. The name
// filter is a substring match, same as the CLI probe it replaces.
func (c *Client) ContainerState(ctx context.Context, name string) (ContainerState, error) {
	list, err := c.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return ContainerState{}, err
	}
	if len(list) == 0 {
		return ContainerState{}, ErrNoSuchContainer
	}

	summary := list[0]
	state := ContainerState{
		Running: summary.State == container.StateRunning,
		Status:  summary.Status,
	}

	inspect, err := c.cli.ContainerInspect(ctx, summary.ID)
	if err != nil {
		// The listing already answered the running question; health stays
		// unknown.
		c.logger.Debug("inspect failed", "container", name, "error", err)
		return state, nil
	}
	if inspect.State != nil && inspect.State.Health != nil {
		state.Health = inspect.State.Health.Status
	}

	return state, nil
}
