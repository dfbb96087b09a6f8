// Package main provides the stackman binary, a compose deployment manager.
//
// Usage:
//
//	stackman [flags] <command> [args...]
//
// Commands:
//
//	start [service]        - Start services (all when no service given)
//	stop [service]         - Stop services
//	restart [service]      - Restart services
//	remove [service]       - Remove stopped service containers
//	build [service]        - Build service images
//	pull [service]         - Pull service images
//	status                 - Show service status
//	logs [service]         - Show service logs (-follow to stream)
//	env                    - List configured environments
//	deploy [strategy]      - Deploy with the configured or given strategy
//	rollback [backup]      - Restore a backup (most recent when no name given)
//	backup <subcommand>    - create [name] | list | validate <name> | sweep
//	monitor [duration]     - Poll service status (Ctrl-C or duration to stop)
//	health [service]       - Probe container health
//	config                 - Print the effective configuration
//	history [limit]        - Show recent deployments
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Exit codes.
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitUsage       = 2
	ExitConfigError = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("stackman", flag.ContinueOnError)
	configPath := flags.String("config", "", "Path to config file")
	env := flags.String("env", "dev", "Environment to operate on")
	historyDSN := flags.String("history-db", "./data/stackman.db", "Path to the deployment history database")
	follow := flags.Bool("follow", false, "Stream logs (logs command only)")
	showVersion := flags.Bool("version", false, "Print version and exit")
	if err := flags.Parse(args); err != nil {
		return ExitUsage
	}

	if *showVersion {
		fmt.Printf("stackman %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	if flags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: stackman [flags] <command> [args...]")
		flags.PrintDefaults()
		return ExitUsage
	}

	app, err := newApp(appOptions{
		ConfigPath:  *configPath,
		Environment: *env,
		HistoryDSN:  *historyDSN,
		Follow:      *follow,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}
	defer app.Close()

	app.logger.Debug("starting stackman",
		"version", Version,
		"environment", *env,
		"command", flags.Arg(0),
	)

	// Ctrl-C cancels the in-flight command; the monitor loop in particular
	// stops cleanly at its next tick boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return dispatch(ctx, app, flags.Arg(0), flags.Args()[1:])
}
