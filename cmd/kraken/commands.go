package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"krakenexport/internal/blob"
	"krakenexport/internal/export"
	"krakenexport/internal/source"
	"krakenexport/pkg/plate"
)

// outputFlags are shared by every export subcommand.
type outputFlags struct {
	order string
	out   string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.order, "order", "", "Order id (job name) to export (required)")
	cmd.Flags().StringVar(&o.out, "out", "", "Output directory for the fs driver (overrides output.dir)")
	_ = cmd.MarkFlagRequired("order")
}

func newDBCmd(a *app) *cobra.Command {
	var (
		of    outputFlags
		wells int
	)
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Export seeded wells recorded in the LIMS",
		Long: `Reads single and sub-sample rows of the order from the LIMS and exports
one routine master plate per LIMS plate, with H11 and H12 reserved for NTCs.

Example:
  kraken db --order SE-25-0130`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.flushMetrics()
			ctx := cmd.Context()
			orderID := strings.TrimSpace(of.order)
			if wells == 0 {
				wells = a.cfg.Wells.SeededPerPlate
			}

			lims, err := a.openLIMS(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = lims.Close() }()

			records, summary, err := lims.SeededSamples(ctx, orderID, wells)
			if err != nil {
				return err
			}
			a.log.Info("seeded samples loaded", append(summary.Fields(), zap.String("order", orderID))...)

			return a.export(ctx, cmd.OutOrStdout(), of.out, export.Request{
				OrderID: orderID,
				Source:  export.SourceDB,
				Records: records,
				Policy:  plate.PolicyStandard,
				RunType: plate.RunRoutine,
			})
		},
	}
	of.register(cmd)
	cmd.Flags().IntVar(&wells, "wells", 0, "Wells per plate used to derive sub-sample positions (default wells.seeded_per_plate)")
	return cmd
}

func newExcelCmd(a *app) *cobra.Command {
	var (
		of      outputFlags
		file    string
		format  string
		runType string
		policy  string
	)
	cmd := &cobra.Command{
		Use:   "excel",
		Short: "Export samples listed on a customer order form",
		Long: `Reads the "Sample List" sheet of an .xlsx order form, prints an import
summary, resolves each customer plate to its LIMS plate and exports the
master plates. Verification runs write every plate twice (_d1 and _d2).

Example:
  kraken excel --order SE-25-0130 --file order.xlsx --format eib --run verification --policy snp-dart`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.flushMetrics()
			ctx := cmd.Context()
			orderID := strings.TrimSpace(of.order)

			layout, err := source.ParseFormat(format)
			if err != nil {
				return err
			}
			rt, err := plate.ParseRunType(runType)
			if err != nil {
				return err
			}
			pol, err := plate.ParseNTCPolicy(policy)
			if err != nil {
				return err
			}

			path := cleanPath(file)
			records, summary, err := source.ReadOrderFormFile(path, layout)
			if err != nil {
				return err
			}
			a.metrics.ObserveImport(summary.Valid, summary.Blanks, summary.Corrected, summary.Skipped)
			a.log.Info("order form read", append(summary.Fields(), zap.String("file", path), zap.String("format", layout.Name))...)
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary))

			lims, err := a.openLIMS(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = lims.Close() }()

			refs, err := lims.PlateIDs(ctx, orderID, source.CustomerPlateIDs(records))
			if err != nil {
				return err
			}
			records, dropped := source.EnrichPlateIDs(records, refs)
			if dropped > 0 {
				a.log.Warn("samples on plates unknown to the LIMS were dropped",
					zap.String("order", orderID), zap.Int("dropped", dropped))
			}

			return a.export(ctx, cmd.OutOrStdout(), of.out, export.Request{
				OrderID:     orderID,
				Source:      export.SourceExcel,
				Records:     records,
				Policy:      pol,
				RunType:     rt,
				ExcelSource: true,
			})
		},
	}
	of.register(cmd)
	cmd.Flags().StringVar(&file, "file", "", "Path to the .xlsx order form (required)")
	cmd.Flags().StringVar(&format, "format", "intertek", "Order form layout: intertek or eib")
	cmd.Flags().StringVar(&runType, "run", "routine", "Run type: routine or verification")
	cmd.Flags().StringVar(&policy, "policy", "snp", "NTC positions: snp (H11,H12) or snp-dart (G12,H12)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newEmptyCmd(a *app) *cobra.Command {
	var (
		of    outputFlags
		wells int
	)
	cmd := &cobra.Command{
		Use:   "empty",
		Short: "Export synthetic wells for every seed plate of the order",
		Long: `Looks up the seed plates of the order and fills the first N wells of each
with a generated subject id (<plate>_<well>).

Example:
  kraken empty --order SE-25-0130 --wells 88`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.flushMetrics()
			ctx := cmd.Context()
			orderID := strings.TrimSpace(of.order)
			if wells == 0 {
				wells = a.cfg.Wells.EmptyPerPlate
			}

			lims, err := a.openLIMS(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = lims.Close() }()

			seeds, err := lims.SeedPlates(ctx, orderID)
			if err != nil {
				return err
			}
			records, err := source.GenerateEmptyPlateWells(seeds, wells)
			if err != nil {
				return err
			}
			a.log.Info("seed plates loaded",
				zap.String("order", orderID), zap.Int("plates", len(seeds)), zap.Int("wells", len(records)))

			return a.export(ctx, cmd.OutOrStdout(), of.out, export.Request{
				OrderID: orderID,
				Source:  export.SourceEmpty,
				Records: records,
				Policy:  plate.PolicyStandard,
				RunType: plate.RunRoutine,
			})
		},
	}
	of.register(cmd)
	cmd.Flags().IntVar(&wells, "wells", 0, "Wells to generate per seed plate (default wells.empty_per_plate)")
	return cmd
}

func (a *app) openLIMS(ctx context.Context) (*source.LIMS, error) {
	return source.OpenLIMS(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN, a.log)
}

func (a *app) export(ctx context.Context, w io.Writer, outDir string, req export.Request) error {
	bc := a.cfg.Blob()
	if outDir != "" {
		bc.Dir = cleanPath(outDir)
	}
	store, err := blob.Open(ctx, bc)
	if err != nil {
		return err
	}
	res, err := export.New(store, a.log, a.metrics).Export(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %d master plates (%d wells) to %s\n", res.Plates, res.Wells, res.Location)
	return nil
}

// cleanPath strips whitespace and the quotes a shell or file manager adds
// around dragged-in paths.
func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	return strings.Trim(p, `"'`)
}
