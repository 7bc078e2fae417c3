package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexshd/biotica"
	"github.com/alexshd/biotica/internal/store"
)

type resultRowsView []store.ResultRow

func (v resultRowsView) text(w io.Writer) {
	for _, r := range v {
		fmt.Fprintf(w, "%s %-16s %.4f %-10s %s\n",
			r.CreatedAt.Format("2006-01-02"), r.PlotID, r.NormalizedScore, r.Classification, r.ID)
	}
}

func newResultsCommand() *cobra.Command {
	var (
		plotID string
		class  string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "results [ID]",
		Short: "List archived results, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			repo := store.NewResultRepository(db)

			if len(args) == 1 {
				row, err := repo.Get(args[0])
				if err != nil {
					return err
				}
				res, err := row.Result()
				if err != nil {
					return err
				}
				return outputResult(cmd.OutOrStdout(), resultView{res})
			}

			rows, err := repo.List(store.ResultFilter{
				PlotID:         plotID,
				Classification: biotica.Classification(class),
				Limit:          limit,
			})
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), resultRowsView(rows))
		},
	}
	cmd.Flags().StringVar(&plotID, "plot-id", "", "Only results of this plot")
	cmd.Flags().StringVar(&class, "class", "", "Only results of this classification")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows (0 for all)")
	return cmd
}

func newExportCommand() *cobra.Command {
	var (
		kind string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export archived results or alerts as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return store.Export(db, store.ExportKind(kind), cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := store.Export(db, store.ExportKind(kind), f); err != nil {
				f.Close()
				return err
			}
			logger.Info("exported", "kind", kind, "file", out)
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(store.ExportResults), "results or alerts")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file (- for stdout)")
	return cmd
}
