package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stratos/internal/daemon"
	"stratos/internal/logging"
	"stratos/internal/preflight"
	"stratos/internal/queue"
	"stratos/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the worker pool and HTTP API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := ctx.logger(true)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	for _, result := range preflight.RunAll(signalCtx, cfg) {
		if result.Passed {
			logger.Info("preflight check passed", logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run `stratos check` for details"),
			logging.String(logging.FieldImpact, "tasks depending on this check will fail"),
		)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open queue store", "queue_open_failed", logging.Error(err))
		return err
	}

	rt, err := buildRuntime(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer rt.Close()

	mgr, err := workflow.NewManager(cfg, store, rt.orchestrator, logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("shutdown signal received", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}
