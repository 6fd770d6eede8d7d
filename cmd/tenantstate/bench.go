package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tenantstate/internal/telemetry"
	"github.com/fyrsmithlabs/tenantstate/pkg/statestore"
)

var (
	benchCount         int
	benchMetricsListen string
)

// benchCmd applies a burst of transitions and prints the aggregate
// counters, optionally serving them for a Prometheus scrape.
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Apply N transitions and report metrics",
	Long: `Apply a burst of session transitions against one tenant and print
the manager's aggregate counters as JSON.

When metrics are enabled in configuration, the Prometheus endpoint is
served after the burst until interrupted.

Examples:
  # 10000 transitions
  tenantstate bench --count 10000

  # Serve /metrics afterwards
  tenantstate bench --metrics-listen :9090`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchCount, "count", 1000, "number of transitions to apply")
	benchCmd.Flags().StringVar(&benchMetricsListen, "metrics-listen", "", "serve Prometheus metrics on this address after the burst")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	mgr := statestore.NewManager(cfg.Store.MaxMemoryMB,
		statestore.WithLogger(logger),
		statestore.WithSnapshotLimits(cfg.Store.MaxAutoSnapshots, cfg.Store.MaxNamedSnapshots),
	)

	const tenantID = "bench-tenant"
	if err := mgr.InitializeTenant(statestore.TenantMetadata{ID: tenantID, Name: "Bench"}); err != nil {
		return err
	}

	start := time.Now()
	for i := 0; i < benchCount; i++ {
		fn := statestore.CreateUserSession(fmt.Sprintf("sess-%d", i), "bench", time.Hour)
		if err := mgr.ApplyTransition(tenantID, fn.Fallible()); err != nil {
			return fmt.Errorf("transition %d: %w", i, err)
		}
	}
	elapsed := time.Since(start)

	metrics := mgr.Metrics()
	out, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\nwall time: %s\n", out, elapsed)

	listen := benchMetricsListen
	if listen == "" && cfg.Metrics.Enabled {
		listen = cfg.Metrics.Listen
	}
	if listen == "" {
		return nil
	}

	handler, err := telemetry.Handler(mgr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	logger.Info("serving metrics", zap.String("listen", listen))
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
