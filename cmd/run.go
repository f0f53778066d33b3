package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kostichs/company-enricher/internal/input"
	"github.com/kostichs/company-enricher/internal/model"
	"github.com/kostichs/company-enricher/internal/orchestrator"
)

var (
	runInput       string
	runOutput      string
	runJSONL       string
	runConcurrency int
	runLimit       int
	runResume      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enrich a CSV of company names",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		records, err := input.ReadCompanies(runInput)
		if err != nil {
			return err
		}

		output := runOutput
		if output == "" {
			output = cfg.Output.CSVPath
		}
		jsonl := runJSONL
		if jsonl == "" {
			jsonl = cfg.Output.JSONLPath
		}

		// Resume: rows already in the output target were emitted by an
		// earlier invocation; skip that many records.
		if runResume {
			done, err := orchestrator.CountRows(output)
			if err != nil {
				return err
			}
			if done >= len(records) {
				zap.L().Info("nothing to resume", zap.Int("emitted", done))
				return nil
			}
			records = records[done:]
			zap.L().Info("resuming batch", zap.Int("skipped", done), zap.Int("remaining", len(records)))
		}

		if runLimit > 0 && len(records) > runLimit {
			records = records[:runLimit]
		}

		concurrency := runConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}

		run, err := e.store.CreateRun(ctx, runInput, len(records))
		if err != nil {
			return err
		}

		w, err := orchestrator.NewWriter(output, jsonl)
		if err != nil {
			return err
		}
		defer w.Close() //nolint:errcheck

		o := orchestrator.New(w, orchestrator.Deps{
			Resolver:  e.resolver,
			Prober:    e.prober,
			Describer: e.describer,
			Gateway:   e.gateway,
			Store:     e.store,
		}, orchestrator.Config{
			Concurrency: concurrency,
			CacheTTL:    e.cacheTTL,
			RunID:       run.ID,
		})

		zap.L().Info("starting batch",
			zap.String("input", runInput),
			zap.String("output", output),
			zap.Int("records", len(records)),
			zap.Int("concurrency", concurrency),
		)

		summary, runErr := o.Run(ctx, records)

		status := model.RunStatusCompleted
		if runErr != nil {
			status = model.RunStatusCancelled
			if !eris.Is(runErr, context.Canceled) {
				status = model.RunStatusFailed
			}
		}
		if err := completeRun(e, run.ID, status); err != nil {
			zap.L().Warn("run bookkeeping failed", zap.Error(err))
		}

		zap.L().Info("batch finished",
			zap.Int("emitted", summary.Emitted),
			zap.Int("valid", summary.ByStatus[model.StatusValid]),
			zap.Int("dead_url", summary.ByStatus[model.StatusDeadURL]),
			zap.Int("duplicate", summary.ByStatus[model.StatusDuplicate]),
			zap.Int("error", summary.ByStatus[model.StatusError]),
			zap.String("status", string(status)),
		)
		return runErr
	},
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "input CSV of company names (required)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output CSV path (default from config)")
	runCmd.Flags().StringVar(&runJSONL, "jsonl", "", "optional JSONL mirror path")
	runCmd.Flags().IntVarP(&runConcurrency, "concurrency", "c", 0, "concurrent record tasks (default from config)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "process at most N records")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "skip records already present in the output file")
	runCmd.MarkFlagRequired("input") //nolint:errcheck
	rootCmd.AddCommand(runCmd)
}
