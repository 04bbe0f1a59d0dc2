package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/pulse/internal/loadgen"
	"github.com/okian/pulse/pkg/logger"
)

func newLoadTestCommand() *cobra.Command {
	cfg := loadgen.DefaultConfig()

	cmd := &cobra.Command{
		Use:         "loadtest",
		Short:       "Fire concurrent pulse requests at a running server",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			report, err := loadgen.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the pulse server")
	f.IntVar(&cfg.Requests, "requests", cfg.Requests, "Number of requests to send")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent workers")
	f.IntVar(&cfg.Users, "users", cfg.Users, "Distinct user ids to spread requests over")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	f.DurationVar(&cfg.SettleDelay, "settle", cfg.SettleDelay, "Wait before checking persisted history")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for generated requests")
	return cmd
}

func renderReport(r *loadgen.Report) string {
	ms := func(d time.Duration) string { return strconv.FormatFloat(float64(d.Microseconds())/1000, 'f', 1, 64) }
	rows := [][]string{
		{"Requests", strconv.Itoa(r.Sent)},
		{"Matched (acr)", strconv.Itoa(r.MatchedACR)},
		{"Matched (heuristic)", strconv.Itoa(r.MatchedHeuristic)},
		{"No match", strconv.Itoa(r.Unmatched)},
		{"Failed", strconv.Itoa(r.Failed)},
		{"Persisted", strconv.Itoa(r.Persisted)},
		{"Latency p50 (ms)", ms(r.P50)},
		{"Latency p95 (ms)", ms(r.P95)},
		{"Latency max (ms)", ms(r.Max)},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}
	return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}
