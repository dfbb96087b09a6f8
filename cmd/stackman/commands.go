package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/artpar/stackman/internal/core/domain"
)

// dispatch routes the command to the appropriate handler and maps its result
// to an exit code.
func dispatch(ctx context.Context, a *app, cmd string, args []string) int {
	switch cmd {
	// Lifecycle commands
	case "start":
		return lifecycleCmd(a.manager.Start)(ctx, optionalService(args))
	case "stop":
		return lifecycleCmd(a.manager.Stop)(ctx, optionalService(args))
	case "restart":
		return lifecycleCmd(a.manager.Restart)(ctx, optionalService(args))
	case "remove":
		return lifecycleCmd(a.manager.Remove)(ctx, optionalService(args))
	case "build":
		return lifecycleCmd(a.manager.Build)(ctx, optionalService(args))
	case "pull":
		return lifecycleCmd(a.manager.Pull)(ctx, optionalService(args))
	case "status":
		return statusCmd(ctx, a)
	case "logs":
		return logsCmd(ctx, a, optionalService(args))

	// Deployment commands
	case "deploy":
		return deployCmd(ctx, a, args)
	case "rollback":
		return rollbackCmd(ctx, a, args)
	case "backup":
		return backupCmd(ctx, a, args)
	case "history":
		return historyCmd(ctx, a, args)

	// Monitoring commands
	case "monitor":
		return monitorCmd(ctx, a, args)
	case "health":
		return healthCmd(ctx, a, optionalService(args))

	// Configuration commands
	case "env":
		return envCmd(a)
	case "config":
		return configCmd(a)
	case "check":
		return checkCmd(a)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		return ExitUsage
	}
}

func optionalService(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// =============================================================================
// Lifecycle Commands
// =============================================================================

// lifecycleCmd adapts a manager operation into a command handler: print the
// output, report the error, map to an exit code.
func lifecycleCmd(op func(context.Context, string) (string, error)) func(context.Context, string) int {
	return func(ctx context.Context, service string) int {
		out, err := op(ctx, service)
		if out != "" {
			fmt.Print(out)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitError
		}
		return ExitSuccess
	}
}

func statusCmd(ctx context.Context, a *app) int {
	out, err := a.manager.Status(ctx)
	if out != "" {
		fmt.Print(out)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}
	return ExitSuccess
}

func logsCmd(ctx context.Context, a *app, service string) int {
	out, err := a.manager.Logs(ctx, service, a.opts.Follow)
	if out != "" {
		fmt.Print(out)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}
	return ExitSuccess
}

// =============================================================================
// Deployment Commands
// =============================================================================

func deployCmd(ctx context.Context, a *app, args []string) int {
	var strategy domain.Strategy
	if len(args) > 0 {
		strategy = domain.Strategy(args[0])
	}

	history, err := a.openHistory()
	if err != nil {
		// The deploy proceeds; only the audit trail is lost.
		a.logger.Warn("history database unavailable, run will not be recorded", "error", err)
		history = nil
	} else {
		defer history.Close()
	}

	outcome := a.orchestrator(history).Deploy(ctx, a.manager.Environment(), strategy)

	fmt.Println(outcome.Message)
	for _, warning := range outcome.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	if !outcome.Success {
		return ExitError
	}
	return ExitSuccess
}

func rollbackCmd(ctx context.Context, a *app, args []string) int {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	if err := a.orchestrator(nil).Rollback(ctx, a.manager.Environment(), name); err != nil {
		fmt.Fprintf(os.Stderr, "rollback failed: %v\n", err)
		return ExitError
	}
	fmt.Println("rollback completed")
	return ExitSuccess
}

func historyCmd(ctx context.Context, a *app, args []string) int {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid limit: %s\n", args[0])
			return ExitUsage
		}
		limit = n
	}

	history, err := a.openHistory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open history database: %v\n", err)
		return ExitError
	}
	defer history.Close()

	runs, err := history.List(ctx, limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}
	if len(runs) == 0 {
		fmt.Println("no deployments recorded")
		return ExitSuccess
	}

	for _, run := range runs {
		verdict := "ok"
		if !run.Success {
			verdict = "failed"
		}
		if run.RolledBack {
			verdict += " (rolled back)"
		}
		fmt.Printf("%s  %-10s %-10s %-18s %s\n",
			run.StartedAt.Format(time.RFC3339), run.Environment, run.Strategy, verdict, run.Outcome)
	}
	return ExitSuccess
}

// =============================================================================
// Backup Commands
// =============================================================================

func backupCmd(ctx context.Context, a *app, args []string) int {
	sub := "create"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "create":
		name := optionalService(args)
		env := a.manager.Environment()
		record, err := a.backups.Create(ctx, env, a.manager.EnvironmentConfig(), a.manager.Target(), name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
			return ExitError
		}
		fmt.Printf("backup %s created (%d artifacts)\n", record.Name, len(record.Artifacts))
		return ExitSuccess

	case "list":
		records, err := a.backups.List()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitError
		}
		if len(records) == 0 {
			fmt.Println("no backups")
			return ExitSuccess
		}
		for _, record := range records {
			fmt.Printf("%s  %-10s %s\n", record.Timestamp.Format(time.RFC3339), record.Environment, record.Name)
		}
		return ExitSuccess

	case "validate":
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "usage: stackman backup validate <name>")
			return ExitUsage
		}
		v := a.backups.Validate(args[0])
		for _, e := range v.Errors {
			fmt.Printf("error: %s\n", e)
		}
		for _, w := range v.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		if !v.Valid {
			fmt.Printf("backup %s is invalid\n", args[0])
			return ExitError
		}
		fmt.Printf("backup %s is valid\n", args[0])
		return ExitSuccess

	case "sweep":
		removed, err := a.backups.Sweep(a.resolver.Backup().RetentionDays)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitError
		}
		fmt.Printf("removed %d expired backups\n", removed)
		return ExitSuccess

	default:
		fmt.Fprintf(os.Stderr, "unknown backup subcommand: %s\n", sub)
		return ExitUsage
	}
}

// =============================================================================
// Monitoring Commands
// =============================================================================

func monitorCmd(ctx context.Context, a *app, args []string) int {
	var duration time.Duration
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid duration: %s\n", args[0])
			return ExitUsage
		}
		duration = d
	}

	err := a.monitor.Watch(ctx, a.manager.Environment(), duration, printReport)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}
	return ExitSuccess
}

func printReport(report domain.StatusReport) {
	if report.Err != "" {
		fmt.Printf("[%s] %s\n", report.Timestamp.Format(time.TimeOnly), report.Err)
		return
	}
	running, stopped, unknown := report.Summary()
	fmt.Printf("[%s] %d running, %d stopped, %d unknown\n",
		report.Timestamp.Format(time.TimeOnly), running, stopped, unknown)
	for _, svc := range report.Services {
		fmt.Printf("  %-30s %-10s %s\n", svc.Name, svc.State, svc.StatusText)
	}
}

func healthCmd(ctx context.Context, a *app, service string) int {
	var records []domain.HealthRecord
	if service != "" {
		records = append(records, a.monitor.Probe(ctx, service))
	} else {
		records = a.monitor.ProbeAll(ctx, a.manager.Environment())
	}

	if len(records) == 0 {
		fmt.Println("no services found")
		return ExitSuccess
	}
	for _, record := range records {
		fmt.Printf("%-30s running=%-5t health=%-10s %s\n",
			record.Service, record.Running, record.Health, record.RawStatus)
	}
	return ExitSuccess
}

// =============================================================================
// Configuration Commands
// =============================================================================

func envCmd(a *app) int {
	names := a.resolver.EnvironmentNames()
	sort.Strings(names)
	for _, name := range names {
		marker := " "
		if name == a.manager.Environment() {
			marker = "*"
		}
		envCfg := a.resolver.Environment(name)
		fmt.Printf("%s %-12s %s\n", marker, name, envCfg.ComposeTarget)
	}
	return ExitSuccess
}

func configCmd(a *app) int {
	rendered, err := a.manager.ShowConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}
	fmt.Print(rendered)
	return ExitSuccess
}

func checkCmd(a *app) int {
	errs, warnings := a.manager.CheckSetup()
	for _, e := range errs {
		fmt.Printf("error: %s\n", e)
	}
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if len(errs) > 0 {
		return ExitError
	}
	fmt.Println("configuration ok")
	return ExitSuccess
}
