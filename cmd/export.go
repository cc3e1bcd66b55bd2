package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/va-pc/buildscout/internal/export"
	"github.com/va-pc/buildscout/internal/model"
	"github.com/va-pc/buildscout/internal/store"
)

var (
	exportOut     string
	exportFormat  string
	exportOurOnly bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored builds to an XLSX or CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportFormat != "xlsx" && exportFormat != "csv" {
			return eris.Errorf("--format must be xlsx or csv (got %q)", exportFormat)
		}

		st, err := initStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		builds, err := loadExportBuilds(cmd.Context(), st)
		if err != nil {
			return err
		}

		switch exportFormat {
		case "xlsx":
			err = export.WriteXLSX(builds, exportOut)
		case "csv":
			err = export.WriteCSV(builds, exportOut)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export written",
			zap.String("path", exportOut),
			zap.Int("builds", len(builds)),
		)
		return nil
	},
}

func loadExportBuilds(ctx context.Context, st store.Store) ([]model.Build, error) {
	if exportOurOnly {
		return st.OurBuilds(ctx)
	}
	return st.AllBuilds(ctx)
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "builds.xlsx", "output file path")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format: xlsx or csv")
	exportCmd.Flags().BoolVar(&exportOurOnly, "our-only", false, "export only first-party builds")
	rootCmd.AddCommand(exportCmd)
}
