package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexshd/biotica"
	"github.com/alexshd/biotica/internal/store"
)

// resultView renders one IBR result.
type resultView struct {
	biotica.IBRResult
}

func (v resultView) text(w io.Writer) {
	r := v.IBRResult
	fmt.Fprintf(w, "IBR %.4f (raw %.4f) %s\n", r.NormalizedScore, r.Score, r.Classification)
	fmt.Fprintf(w, "  uncertainty %.4f, confidence %.1f%%\n", r.Uncertainty, r.Confidence*100)
	if r.PlotID != "" {
		fmt.Fprintf(w, "  plot %s", r.PlotID)
		if r.Biome != "" {
			fmt.Fprintf(w, " (%s)", r.Biome)
		}
		fmt.Fprintln(w)
	}
	for _, p := range biotica.AllParameters() {
		if c, ok := r.Contributions[p]; ok {
			fmt.Fprintf(w, "  %-4s %.4f\n", p, c)
		}
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  ! %s\n", warn)
	}
}

// engine builds the configured engine, optionally with the threshold
// correction of biome.
func engine(biome biotica.Biome, correct bool) (*biotica.Engine, error) {
	var opts []biotica.EngineOption
	opts = append(opts, biotica.WithLogger(logger))
	if correct && biome != "" {
		w, err := cfg.WeightTable()
		if err != nil {
			return nil, err
		}
		opts = append(opts, biotica.WithBiomeCorrection(
			biotica.ThresholdCorrection(biotica.NewBiomeRegistry(), biome, w)))
	}
	return cfg.Engine(opts...)
}

func newComputeCommand() *cobra.Command {
	var (
		input      string
		plotID     string
		biome      string
		noValidate bool
		correct    bool
		save       bool
	)
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute the IBR of one plot",
		Long: `Compute the IBR of one plot from a JSON plot record:

  {"plot_id": "P-1", "biome": "temperate_broadleaf",
   "parameters": {"VCA": 0.85, "MDI": 0.78, ...},
   "raw": {"values": {"ndvi": 0.7, "lai": 4.2, "gpp": 1800}}}

Raw measurements are derived first; explicit parameters override them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec biotica.PlotRecord
			if err := readInputJSON(cmd, input, &rec); err != nil {
				return err
			}
			if plotID != "" {
				rec.PlotID = plotID
			}
			if biome != "" {
				b, err := biotica.ParseBiome(biome)
				if err != nil {
					return err
				}
				rec.Biome = b
			}

			e, err := engine(rec.Biome, correct)
			if err != nil {
				return err
			}
			result, err := e.ComputeRecord(rec, !noValidate)
			if err != nil {
				return err
			}
			if save {
				db, err := openStore()
				if err != nil {
					return err
				}
				if err := store.NewResultRepository(db).Save(result); err != nil {
					return err
				}
			}
			return outputResult(cmd.OutOrStdout(), resultView{result})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Plot record JSON file (- for stdin)")
	cmd.Flags().StringVar(&plotID, "plot-id", "", "Plot identifier")
	cmd.Flags().StringVar(&biome, "biome", "", "Biome of the plot")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "Score partial parameter sets")
	cmd.Flags().BoolVar(&correct, "correct", false, "Apply the biome threshold correction")
	cmd.Flags().BoolVar(&save, "save", false, "Archive the result")
	return cmd
}

// batchView renders a batch run.
type batchView struct {
	Items   []batchItemView      `json:"items"`
	Summary biotica.BatchSummary `json:"summary"`
}

type batchItemView struct {
	Index  int                `json:"index"`
	PlotID string             `json:"plot_id"`
	Result *biotica.IBRResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func (v batchView) text(w io.Writer) {
	for _, it := range v.Items {
		if it.Error != "" {
			fmt.Fprintf(w, "%4d %-16s ERROR %s\n", it.Index, it.PlotID, it.Error)
			continue
		}
		fmt.Fprintf(w, "%4d %-16s %.4f %s\n", it.Index, it.PlotID, it.Result.NormalizedScore, it.Result.Classification)
	}
	s := v.Summary
	fmt.Fprintf(w, "\n%d scored, %d failed in %v (%.0f plots/s)\n", s.N, s.Failed, s.Duration, s.Throughput)
	fmt.Fprintf(w, "mean %.4f, std %.4f, min %.4f, max %.4f\n", s.Scores.Mean, s.Scores.Stddev, s.Scores.Min, s.Scores.Max)
	for _, c := range biotica.AllClassifications() {
		fmt.Fprintf(w, "  %-10s %d\n", c, s.Counts[c])
	}
}

// readPlots accepts either a JSON array of plot records or {"plots": [...]}.
func readPlots(cmd *cobra.Command, input string) ([]biotica.PlotRecord, error) {
	var raw json.RawMessage
	if err := readInputJSON(cmd, input, &raw); err != nil {
		return nil, err
	}
	var plots []biotica.PlotRecord
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		if err := json.Unmarshal(raw, &plots); err != nil {
			return nil, fmt.Errorf("failed to parse plots: %w", err)
		}
		return plots, nil
	}
	var wrapped struct {
		Plots []biotica.PlotRecord `json:"plots"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse plots: %w", err)
	}
	return wrapped.Plots, nil
}

func newBatchCommand() *cobra.Command {
	var (
		input      string
		workers    int
		noValidate bool
		save       bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score many plots concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			plots, err := readPlots(cmd, input)
			if err != nil {
				return err
			}
			e, err := engine("", false)
			if err != nil {
				return err
			}
			if workers == 0 {
				workers = cfg.Server.Workers
			}
			proc := biotica.NewBatchProcessor(e, biotica.WithWorkers(workers), biotica.WithBatchValidation(!noValidate))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			items, summary, err := proc.ProcessAndSummarize(ctx, plots)
			if err != nil {
				return err
			}

			view := batchView{Items: make([]batchItemView, len(items)), Summary: summary}
			var ok []biotica.IBRResult
			for i, it := range items {
				view.Items[i] = batchItemView{Index: it.Index, PlotID: it.PlotID, Result: it.Result}
				if it.Err != nil {
					view.Items[i].Error = it.Err.Error()
					logger.Warn("plot failed", "plot_id", it.PlotID, "err", it.Err)
					continue
				}
				ok = append(ok, *it.Result)
			}
			if save && len(ok) > 0 {
				db, err := openStore()
				if err != nil {
					return err
				}
				if err := store.NewResultRepository(db).SaveAll(ok); err != nil {
					return err
				}
				logger.Info("batch archived", "n", len(ok), "db", db.Path())
			}
			return outputResult(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON array of plot records (- for stdin)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent workers (default: number of CPUs)")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "Score partial parameter sets")
	cmd.Flags().BoolVar(&save, "save", false, "Archive successful results")
	return cmd
}

func newScenarioCommand() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Compare intervention scenarios against a baseline",
		Long: `Compare intervention scenarios against a baseline:

  {"base": {"VCA": 0.6, ...},
   "scenarios": [{"name": "reforestation", "overrides": {"VCA": 0.8}}]}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req struct {
				Base      map[biotica.Parameter]float64 `json:"base"`
				Scenarios []biotica.Scenario            `json:"scenarios"`
			}
			if err := readInputJSON(cmd, input, &req); err != nil {
				return err
			}
			e, err := engine("", false)
			if err != nil {
				return err
			}
			report, err := e.SimulateScenarios(req.Base, req.Scenarios)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), scenarioView{report})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Scenario JSON file (- for stdin)")
	return cmd
}

type scenarioView struct {
	biotica.ScenarioReport
}

func (v scenarioView) text(w io.Writer) {
	fmt.Fprintf(w, "baseline  %.4f %s\n", v.Baseline.NormalizedScore, v.Baseline.Classification)
	for _, o := range v.Outcomes {
		marker := " "
		if o.Name == v.Best {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-24s %.4f %+.4f %s\n", marker, o.Name, o.Result.NormalizedScore, o.Gain, o.Result.Classification)
	}
}

func newSensitivityCommand() *cobra.Command {
	var (
		input string
		param string
		lo    float64
		hi    float64
		steps int
	)
	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Measure how strongly each parameter moves the score",
		RunE: func(cmd *cobra.Command, args []string) error {
			var base map[biotica.Parameter]float64
			if err := readInputJSON(cmd, input, &base); err != nil {
				return err
			}
			e, err := engine("", false)
			if err != nil {
				return err
			}

			var results []biotica.SensitivityResult
			if param != "" {
				p, err := biotica.ParseParameter(param)
				if err != nil {
					return err
				}
				r, err := e.Sensitivity(base, p, lo, hi, steps)
				if err != nil {
					return err
				}
				results = append(results, r)
			} else if results, err = e.SensitivityAll(base, lo, hi, steps); err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), sensitivityView(results))
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Baseline parameters JSON (- for stdin)")
	cmd.Flags().StringVarP(&param, "param", "p", "", "Single parameter to vary (default: all)")
	cmd.Flags().Float64Var(&lo, "lo", 0.3, "Lowest value")
	cmd.Flags().Float64Var(&hi, "hi", 1.0, "Highest value")
	cmd.Flags().IntVar(&steps, "steps", 8, "Number of evenly spaced values")
	return cmd
}

type sensitivityView []biotica.SensitivityResult

func (v sensitivityView) text(w io.Writer) {
	for _, r := range v {
		flag := ""
		if r.Critical {
			flag = " CRITICAL"
		}
		fmt.Fprintf(w, "%-4s %.4f [%.4f, %.4f]%s\n", r.Parameter, r.Sensitivity, r.MinScore, r.MaxScore, flag)
	}
}
