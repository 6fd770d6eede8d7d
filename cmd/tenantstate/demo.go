package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tenantstate/pkg/statestore"
)

// demoCmd walks a tenant through login, config updates, a named
// snapshot, further mutation, and a rollback.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted walkthrough of the state store",
	Long: `Run a scripted walkthrough: initialize a tenant, log a user in,
apply configuration updates, snapshot, mutate further, and roll back.

Examples:
  # Run with defaults
  tenantstate demo

  # Run with a config file
  tenantstate demo --config ./config.yaml`,
	RunE: runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	mgr := statestore.NewManager(cfg.Store.MaxMemoryMB,
		statestore.WithLogger(logger),
		statestore.WithSnapshotLimits(cfg.Store.MaxAutoSnapshots, cfg.Store.MaxNamedSnapshots),
	)

	const tenantID = "demo-tenant"
	if err := mgr.InitializeTenant(statestore.TenantMetadata{
		ID:     tenantID,
		Name:   "Demo Tenant",
		Labels: map[string]string{"env": "demo"},
	}); err != nil {
		return err
	}
	logger.Info("tenant initialized", zap.String("tenant_id", tenantID))

	login, err := statestore.BuildLoginTransitions("alice", `{"role":"admin"}`, time.Hour)
	if err != nil {
		return err
	}
	if err := mgr.ApplyTransitions(tenantID, login); err != nil {
		return err
	}
	logger.Info("user logged in", zap.String("user_id", "alice"))

	updates, err := statestore.BuildConfigUpdates(map[string]any{
		"theme":       "dark",
		"max_results": 50,
	})
	if err != nil {
		return err
	}
	if err := mgr.ApplyTransitions(tenantID, updates); err != nil {
		return err
	}

	snapID, err := mgr.CreateSnapshot(tenantID, statestore.SnapshotOptions{
		Name:        "after-setup",
		CreatedBy:   "demo",
		Description: "logged in with initial config",
		Tags:        []string{"demo"},
	})
	if err != nil {
		return err
	}
	logger.Info("snapshot created", zap.String("snapshot_id", snapID))

	before, _ := mgr.GetTenantState(tenantID)

	wipe := statestore.RemoveAppConfig("theme")
	if err := mgr.ApplyTransition(tenantID, wipe.Fallible()); err != nil {
		return err
	}
	after, _ := mgr.GetTenantState(tenantID)
	for k, v := range statestore.StateDiffSummary(before, after) {
		logger.Info("state changed", zap.String(k, v))
	}

	if err := mgr.RollbackToNamedSnapshot(tenantID, "after-setup"); err != nil {
		return err
	}
	restored, _ := mgr.GetTenantState(tenantID)
	theme, _ := restored.AppData.Get("theme")
	logger.Info("rolled back", zap.Any("theme", theme))

	metrics := mgr.Metrics()
	fmt.Fprintf(cmd.OutOrStdout(), "transitions applied: %d, avg %d ns\n",
		metrics.TransitionCount, metrics.AvgTransitionTimeNs)
	return nil
}
