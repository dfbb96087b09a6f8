package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/stackman/internal/core/config"
	"github.com/artpar/stackman/internal/core/deploy"
	"github.com/artpar/stackman/internal/core/domain"
	"github.com/artpar/stackman/internal/shell/executor"
)

// =============================================================================
// Deployment Orchestrator
// =============================================================================

// Orchestrator drives the deploy state machine: backup, pre-hooks, strategy
// steps, post-hooks, and rollback on failure. One orchestrated deploy per
// environment at a time; callers serialize concurrent deploys.
type Orchestrator struct {
	resolver *config.Resolver
	gateway  *executor.Gateway
	backups  *BackupManager
	history  *History // optional; nil disables run recording
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator creates a deployment orchestrator. history may be nil.
func NewOrchestrator(resolver *config.Resolver, gateway *executor.Gateway, backups *BackupManager, history *History, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		resolver: resolver,
		gateway:  gateway,
		backups:  backups,
		history:  history,
		logger:   logger.With("component", "orchestrator"),
		now:      time.Now,
	}
}

// Deploy runs the full deployment state machine against the environment.
// An explicit strategy overrides the configured default. Every failure path
// ends in a terminal outcome; Deploy never propagates step errors.
func (o *Orchestrator) Deploy(ctx context.Context, env string, strategyOverride domain.Strategy) domain.DeployOutcome {
	started := o.now()
	policy := o.resolver.Deployment()

	strategy := policy.Strategy
	if strategyOverride != "" {
		strategy = strategyOverride
	}
	plan := deploy.PlanStrategy(strategy)
	if plan.Degraded && strategy != plan.Strategy {
		o.logger.Warn("unknown strategy, using recreate", "requested", strategy)
	} else if plan.Degraded {
		o.logger.Info("strategy has no dedicated algorithm yet, using recreate sequence", "strategy", strategy)
	}

	envCfg := o.resolver.Environment(env)
	target := o.target(env, envCfg)

	o.logger.Info("starting deployment", "environment", env, "strategy", strategy)

	outcome := o.run(ctx, env, envCfg, target, policy, plan)
	o.record(ctx, env, strategy, started, outcome)
	return outcome
}

func (o *Orchestrator) run(ctx context.Context, env string, envCfg domain.EnvironmentConfig, target executor.Target, policy domain.DeploymentPolicy, plan deploy.Plan) domain.DeployOutcome {
	// Backup: without a usable pre-deploy snapshot there is no rollback
	// path, so the deploy fails before touching anything.
	record, err := o.backups.Create(ctx, env, envCfg, target, "pre_deploy")
	if record == nil {
		o.logger.Error("pre-deploy backup failed", "environment", env, "error", err)
		return domain.DeployOutcome{
			Success: false,
			Message: fmt.Sprintf("deployment aborted: pre-deploy backup produced no usable snapshot (%v)", err),
		}
	}

	// Pre-hooks: declared order, first failure aborts the rest.
	for _, hook := range policy.PreDeployHooks {
		o.logger.Info("running pre-deploy hook", "hook", hook)
		if result := o.gateway.Hook(ctx, "pre_deploy_hook", target, hook); !result.Succeeded {
			stepErr := &domain.DeploymentError{Step: "pre_deploy_hook", Detail: hook}
			return o.failed(ctx, envCfg, target, policy, *record, stepErr)
		}
	}

	// Strategy steps.
	for _, step := range plan.Steps {
		if result := o.runStep(ctx, target, step); !result.Succeeded {
			stepErr := &domain.DeploymentError{Step: string(step), Detail: firstLine(result.Stderr)}
			return o.failed(ctx, envCfg, target, policy, *record, stepErr)
		}
	}

	// Post-hooks: a failure here is a warning, never a rollback. The
	// deployment itself already succeeded.
	var warnings []string
	for _, hook := range policy.PostDeployHooks {
		o.logger.Info("running post-deploy hook", "hook", hook)
		if result := o.gateway.Hook(ctx, "post_deploy_hook", target, hook); !result.Succeeded {
			o.logger.Warn("post-deploy hook failed", "hook", hook, "stderr", result.Stderr)
			warnings = append(warnings, fmt.Sprintf("post-deploy hook failed: %s", hook))
		}
	}

	o.logger.Info("deployment completed", "environment", env, "strategy", plan.Strategy)
	return domain.DeployOutcome{
		Success:  true,
		Message:  fmt.Sprintf("deployment to %s completed with strategy %s", env, plan.Strategy),
		Warnings: warnings,
	}
}

func (o *Orchestrator) runStep(ctx context.Context, target executor.Target, step deploy.Step) executor.Result {
	o.logger.Info("running deployment step", "step", step)
	switch step {
	case deploy.StepPull:
		return o.gateway.Pull(ctx, target, "")
	case deploy.StepStop:
		return o.gateway.Stop(ctx, target, "")
	case deploy.StepBuild:
		return o.gateway.Build(ctx, target, "")
	case deploy.StepUp:
		return o.gateway.Up(ctx, target, "")
	}
	return executor.Result{Succeeded: false, Stderr: fmt.Sprintf("unknown step %q", step)}
}

// failed turns a step failure into the terminal outcome, rolling back to the
// pre-deploy snapshot when the policy asks for it. Rollback failure is
// reported, not retried.
func (o *Orchestrator) failed(ctx context.Context, envCfg domain.EnvironmentConfig, target executor.Target, policy domain.DeploymentPolicy, record domain.BackupRecord, stepErr *domain.DeploymentError) domain.DeployOutcome {
	o.logger.Error("deployment failed", "step", stepErr.Step, "detail", stepErr.Detail)

	if !policy.RollbackOnFailure {
		return domain.DeployOutcome{
			Success: false,
			Message: fmt.Sprintf("deployment failed: %v (rollback disabled by policy)", stepErr),
		}
	}

	o.logger.Info("rolling back to pre-deploy backup", "backup", record.Name)
	if o.backups.restoreWithSuffix(ctx, envCfg, target, record, asideFailed) {
		return domain.DeployOutcome{
			Success:    false,
			RolledBack: true,
			Message:    fmt.Sprintf("deployment failed: %v; rolled back to backup %s", stepErr, record.Name),
		}
	}
	return domain.DeployOutcome{
		Success: false,
		Message: fmt.Sprintf("deployment failed: %v; rollback to backup %s also failed", stepErr, record.Name),
	}
}

// Rollback restores a named backup outside of a deploy run. An empty name
// picks the most recent record.
func (o *Orchestrator) Rollback(ctx context.Context, env, backupName string) error {
	envCfg := o.resolver.Environment(env)
	target := o.target(env, envCfg)

	var record *domain.BackupRecord
	if backupName != "" {
		record = o.backups.Find(backupName)
	} else {
		records, err := o.backups.List()
		if err != nil {
			return err
		}
		if len(records) > 0 {
			record = &records[0]
		}
	}
	if record == nil {
		return &domain.BackupError{Op: "restore", Name: backupName, Err: fmt.Errorf("no backup found")}
	}

	if !o.backups.Restore(ctx, envCfg, target, *record) {
		return &domain.BackupError{Op: "restore", Name: record.Name, Err: fmt.Errorf("restore did not complete")}
	}
	return nil
}

func (o *Orchestrator) target(env string, envCfg domain.EnvironmentConfig) executor.Target {
	return executor.Target{
		ComposeTarget: envCfg.ComposeTarget,
		EnvVars:       o.resolver.EnvVars(env),
		BuildOptions:  envCfg.BuildOptions,
	}
}

// record appends the terminal state to the history store. History problems
// never affect the deploy outcome.
func (o *Orchestrator) record(ctx context.Context, env string, strategy domain.Strategy, started time.Time, outcome domain.DeployOutcome) {
	if o.history == nil {
		return
	}
	run := domain.DeployRun{
		ID:          uuid.New().String(),
		Environment: env,
		Strategy:    string(strategy),
		Success:     outcome.Success,
		RolledBack:  outcome.RolledBack,
		Outcome:     outcome.Message,
		StartedAt:   started,
		FinishedAt:  o.now(),
	}
	if err := o.history.Append(ctx, run); err != nil {
		o.logger.Warn("failed to record deploy run", "error", err)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
