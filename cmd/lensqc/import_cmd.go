package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hikari-opt/lens-qc/modules/qc"
	"github.com/hikari-opt/lens-qc/modules/qc/services"
	"github.com/hikari-opt/lens-qc/pkg/composables"
	"github.com/hikari-opt/lens-qc/pkg/configuration"
)

func newImportCmd() *cobra.Command {
	var (
		kind     string
		file     string
		encoding string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import one production feed CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			defer conf.Unload()

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithPool(cmd.Context(), pool)
			module := qc.NewModule(conf, conf.Logger())

			result, err := module.Imports.Import(ctx, services.ImportRequest{
				Path:     file,
				Kind:     services.FeedKind(kind),
				Encoding: encoding,
			})
			if err != nil {
				return err
			}

			fmt.Println(result.Message)
			for _, rowErr := range result.Errors {
				fmt.Fprintln(os.Stderr, rowErr.String())
			}
			if !result.Success {
				return fmt.Errorf("import finished with %d row errors", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Feed kind: lot_primary|lot_stage|film_cut|film_process|spin_coat|hard_coat|instruction|product_master")
	cmd.Flags().StringVar(&file, "file", "", "Path to the feed CSV")
	cmd.Flags().StringVar(&encoding, "encoding", "", "Feed encoding: shift_jis|utf8 (default from configuration)")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
