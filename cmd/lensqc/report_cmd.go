package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hikari-opt/lens-qc/modules/qc"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/lot"
	"github.com/hikari-opt/lens-qc/pkg/composables"
	"github.com/hikari-opt/lens-qc/pkg/configuration"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render defect-rate reports",
	}
	cmd.AddCommand(newReportDefectsCmd())
	cmd.AddCommand(newReportYieldCmd())
	cmd.AddCommand(newReportProgressCmd())
	cmd.AddCommand(newReportIncompleteCmd())
	return cmd
}

func withModule(cmd *cobra.Command, fn func(ctx context.Context, module *qc.Module) error) error {
	conf := configuration.Use()
	defer conf.Unload()

	pool, err := connectDB(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := composables.WithPool(cmd.Context(), pool)
	return fn(ctx, qc.NewModule(conf, conf.Logger()))
}

func writeWorkbook(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", path, len(data))
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newReportDefectsCmd() *cobra.Command {
	var (
		from string
		to   string
		out  string
	)

	cmd := &cobra.Command{
		Use:   "defects",
		Short: "Lens defect summary by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := parseDateFlag(from)
			if err != nil {
				return err
			}
			toDate, err := parseDateFlag(to)
			if err != nil {
				return err
			}
			return withModule(cmd, func(ctx context.Context, module *qc.Module) error {
				params := &lot.FindParams{R1From: fromDate, R1To: toDate}
				if out != "" {
					data, err := module.Exports.ExportDefectSummary(ctx, params)
					if err != nil {
						return err
					}
					return writeWorkbook(out, data)
				}
				summary, err := module.Aggregations.DefectSummary(ctx, params)
				if err != nil {
					return err
				}
				return writeJSON(summary)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First R1 injection date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last R1 injection date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&out, "out", "", "Write an XLSX workbook instead of JSON")
	return cmd
}

func newReportYieldCmd() *cobra.Command {
	var (
		from string
		to   string
		out  string
	)

	cmd := &cobra.Command{
		Use:   "yield",
		Short: "Monomer achievement against production instructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := parseDateFlag(from)
			if err != nil {
				return err
			}
			toDate, err := parseDateFlag(to)
			if err != nil {
				return err
			}
			return withModule(cmd, func(ctx context.Context, module *qc.Module) error {
				if out != "" {
					data, err := module.Exports.ExportMonomerAchievement(ctx, fromDate, toDate)
					if err != nil {
						return err
					}
					return writeWorkbook(out, data)
				}
				report, err := module.Aggregations.MonomerAchievementReport(ctx, fromDate, toDate)
				if err != nil {
					return err
				}
				return writeJSON(report)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First instruction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last instruction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&out, "out", "", "Write an XLSX workbook instead of JSON")
	return cmd
}

func newReportProgressCmd() *cobra.Command {
	var (
		from string
		to   string
	)

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Per-monomer stage sign-off counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := parseDateFlag(from)
			if err != nil {
				return err
			}
			toDate, err := parseDateFlag(to)
			if err != nil {
				return err
			}
			return withModule(cmd, func(ctx context.Context, module *qc.Module) error {
				report, err := module.Aggregations.StageProgressReport(ctx, &lot.FindParams{
					R1From: fromDate,
					R1To:   toDate,
				})
				if err != nil {
					return err
				}
				return writeJSON(report)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First R1 injection date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last R1 injection date (YYYY-MM-DD)")
	return cmd
}

func newReportIncompleteCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "incomplete",
		Short: "Released lots still waiting on third inspection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModule(cmd, func(ctx context.Context, module *qc.Module) error {
				if out != "" {
					data, err := module.Exports.ExportIncompleteInspections(ctx, time.Now())
					if err != nil {
						return err
					}
					return writeWorkbook(out, data)
				}
				report, err := module.Aggregations.IncompleteInspections(ctx, time.Now())
				if err != nil {
					return err
				}
				return writeJSON(report)
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write an XLSX workbook instead of JSON")
	return cmd
}
