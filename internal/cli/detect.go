package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexshd/biotica"
	"github.com/alexshd/biotica/internal/store"
)

// seriesInput is a time series with optional timestamps in days. Null
// entries are gaps.
type seriesInput struct {
	Variable   string                `json:"variable"`
	Series     []*float64            `json:"series"`
	Timestamps []float64             `json:"timestamps"`
	Columns    map[string][]*float64 `json:"columns"`
}

func withGaps(xs []*float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	return out
}

// readSeries accepts a bare JSON array or a seriesInput object.
func readSeries(cmd *cobra.Command, input string) (seriesInput, error) {
	var raw json.RawMessage
	if err := readInputJSON(cmd, input, &raw); err != nil {
		return seriesInput{}, err
	}
	var in seriesInput
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		if err := json.Unmarshal(raw, &in.Series); err != nil {
			return seriesInput{}, fmt.Errorf("failed to parse series: %w", err)
		}
		return in, nil
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return seriesInput{}, fmt.Errorf("failed to parse series: %w", err)
	}
	return in, nil
}

// tippingView renders one detection.
type tippingView struct {
	biotica.TippingPointResult
}

func (v tippingView) text(w io.Writer) {
	r := v.TippingPointResult
	if r.Degraded() {
		fmt.Fprintf(w, "%s: %v\n", r.Status, r.Metadata["error"])
		return
	}
	fmt.Fprintf(w, "warning level %d/3, critical slowing down: %v\n", r.WarningLevel, r.CriticalSlowingDown)
	fmt.Fprintf(w, "  variance τ        %+.3f\n", r.VarianceTrend)
	fmt.Fprintf(w, "  autocorrelation τ %+.3f\n", r.AutocorrelationTrend)
	fmt.Fprintf(w, "  skewness τ        %+.3f\n", r.SkewnessTrend)
	fmt.Fprintf(w, "  recovery rate τ   %+.3f\n", r.RecoveryRateTrend)
	fmt.Fprintf(w, "  estimated months  %d\n", r.EstimatedMonths)
	fmt.Fprintf(w, "  confidence        %.1f%%\n", r.Confidence*100)
}

type multiView map[string]biotica.TippingPointResult

func (v multiView) text(w io.Writer) {
	for name, r := range v {
		fmt.Fprintf(w, "[%s] ", name)
		tippingView{r}.text(w)
	}
}

func newDetectCommand() *cobra.Command {
	var (
		input     string
		plotID    string
		window    int
		lag       int
		minPoints int
		alpha     float64
		noDetrend bool
	)
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Look for critical slowing down in a time series",
		Long: `Look for critical slowing down in a time series:

  {"series": [0.81, 0.80, null, 0.79, ...], "timestamps": [0, 30, 61, ...]}

A bare JSON array is also accepted. "columns" runs one independent
detection per named series. With --plot-id the archived scores of that
plot are analyzed instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dc := cfg.Detector.DetectorConfig
			if cmd.Flags().Changed("window") {
				dc.Window = window
			}
			if cmd.Flags().Changed("lag") {
				dc.Lag = lag
			}
			if cmd.Flags().Changed("min-points") {
				dc.MinPoints = minPoints
			}
			if cmd.Flags().Changed("alpha") {
				dc.Significance = alpha
			}
			if noDetrend {
				dc.Detrend = false
			}
			c := cfg
			c.Detector.DetectorConfig = dc
			detector, err := c.NewDetector(biotica.WithDetectorLogger(logger))
			if err != nil {
				return err
			}

			if plotID != "" {
				db, err := openStore()
				if err != nil {
					return err
				}
				scores, days, err := store.NewResultRepository(db).Series(plotID)
				if err != nil {
					return err
				}
				return outputResult(cmd.OutOrStdout(), tippingView{detector.DetectNamed(plotID, scores, days)})
			}

			in, err := readSeries(cmd, input)
			if err != nil {
				return err
			}
			if len(in.Columns) > 0 {
				cols := make(map[string][]float64, len(in.Columns))
				for name, col := range in.Columns {
					cols[name] = withGaps(col)
				}
				return outputResult(cmd.OutOrStdout(), multiView(detector.DetectMultivariate(cols, in.Timestamps)))
			}
			name := in.Variable
			if name == "" {
				name = "IBR"
			}
			return outputResult(cmd.OutOrStdout(), tippingView{detector.DetectNamed(name, withGaps(in.Series), in.Timestamps)})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Series JSON file (- for stdin)")
	cmd.Flags().StringVar(&plotID, "plot-id", "", "Analyze the archived scores of a plot")
	cmd.Flags().IntVar(&window, "window", 24, "Rolling window length")
	cmd.Flags().IntVar(&lag, "lag", 1, "Autocorrelation lag")
	cmd.Flags().IntVar(&minPoints, "min-points", 50, "Minimum observations")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Significance level")
	cmd.Flags().BoolVar(&noDetrend, "no-detrend", false, "Skip linear detrending")
	return cmd
}

type ewsView struct {
	biotica.EWSReport
}

func (v ewsView) text(w io.Writer) {
	fmt.Fprintf(w, "method %s, window %d\n", v.Method, v.Window)
	for _, ind := range []struct {
		name string
		s    *biotica.IndicatorSeries
	}{
		{"variance", v.Variance},
		{"autocorrelation", v.Autocorrelation},
		{"skewness", v.Skewness},
		{"kurtosis", v.Kurtosis},
	} {
		if ind.s != nil {
			fmt.Fprintf(w, "  %-16s τ %+.3f (p %.4f)\n", ind.name, ind.s.Trend, ind.s.PValue)
		}
	}
	if v.Combined != nil {
		fmt.Fprintf(w, "  combined %.2f: %s\n", v.Combined.Score, v.Combined.Interpretation)
	}
}

func newEWSCommand() *cobra.Command {
	var (
		input  string
		method string
	)
	cmd := &cobra.Command{
		Use:   "ews",
		Short: "Rolling early-warning indicators of a time series",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readSeries(cmd, input)
			if err != nil {
				return err
			}
			tester, err := biotica.LookupTrendTester(cfg.Detector.TrendTest)
			if err != nil {
				return err
			}
			report, err := biotica.NewEarlyWarningSignals(tester).Analyze(withGaps(in.Series), biotica.EWSMethod(method))
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), ewsView{report})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Series JSON file (- for stdin)")
	cmd.Flags().StringVarP(&method, "method", "m", "all", "all, variance, autocorrelation, skewness or kurtosis")
	return cmd
}
