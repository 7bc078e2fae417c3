package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexshd/biotica"
)

var biomeFile string

// registry loads --biomes over the reference profiles, or the reference
// profiles alone.
func registry() (*biotica.BiomeRegistry, error) {
	if biomeFile == "" {
		return biotica.NewBiomeRegistry(), nil
	}
	f, err := os.Open(biomeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open biome file: %w", err)
	}
	defer f.Close()
	return biotica.LoadBiomeRegistry(f)
}

type biomeScoresView []biotica.BiomeScore

func (v biomeScoresView) text(w io.Writer) {
	for _, s := range v {
		fmt.Fprintf(w, "%-22s %.3f\n", s.Biome, s.Score)
	}
}

type profileView struct {
	biotica.BiomeProfile
}

func (v profileView) text(w io.Writer) {
	p := v.BiomeProfile
	fmt.Fprintf(w, "%s (%s), %s\n", p.Name, p.Code, p.ClimateZone)
	fmt.Fprintf(w, "  climate      %.1f °C, %.0f mm/yr\n", p.MeanTemperature, p.MeanPrecipitation)
	fmt.Fprintf(w, "  vegetation   %s\n", strings.Join(p.DominantVegetation, ", "))
	fmt.Fprintf(w, "  soils        %s\n", strings.Join(p.SoilTypes, ", "))
	fmt.Fprintf(w, "  biodiversity %.2f, carbon %.0f Mg C/ha, reference IBR %.2f\n",
		p.BiodiversityIndex, p.CarbonStorage, p.ReferenceIBR)
	for _, param := range biotica.AllParameters() {
		if r, ok := p.Thresholds[param]; ok {
			fmt.Fprintf(w, "  %-4s [%.2f, %.2f]\n", param, r.Low, r.High)
		}
	}
}

func newBiomeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biome",
		Short: "Biome reference profiles",
	}
	cmd.PersistentFlags().StringVar(&biomeFile, "biomes", "", "JSON file of profiles overlaid on the reference set")

	list := &cobra.Command{
		Use:   "list",
		Short: "List biomes with a reference profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry()
			if err != nil {
				return err
			}
			if outputText {
				for _, b := range reg.List() {
					p, _ := reg.Get(b)
					fmt.Fprintf(cmd.OutOrStdout(), "%-22s %-4s %s\n", b, p.Code, p.ClimateZone)
				}
				return nil
			}
			return outputResult(cmd.OutOrStdout(), reg.List())
		},
	}

	show := &cobra.Command{
		Use:   "show NAME",
		Short: "Show a biome profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry()
			if err != nil {
				return err
			}
			b, err := biotica.ParseBiome(args[0])
			if err != nil {
				return err
			}
			p, ok := reg.Get(b)
			if !ok {
				return fmt.Errorf("no reference profile for %s: %w", b, biotica.ErrUnknownBiome)
			}
			return outputResult(cmd.OutOrStdout(), profileView{p})
		},
	}

	var n int
	similar := &cobra.Command{
		Use:   "similar NAME",
		Short: "Rank biomes by similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry()
			if err != nil {
				return err
			}
			b, err := biotica.ParseBiome(args[0])
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), biomeScoresView(reg.FindSimilar(b, n)))
		},
	}
	similar.Flags().IntVarP(&n, "n", "n", 5, "Number of biomes")

	var lat, lon, elevation, threshold float64
	classify := &cobra.Command{
		Use:   "classify",
		Short: "Candidate biomes for a location, resolved across transition zones",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry()
			if err != nil {
				return err
			}
			candidates := reg.ClassifyByCoordinates(lat, lon, elevation)
			resolved, _ := biotica.NewTransitionZoneResolver(reg).Resolve(candidates, threshold)
			if outputText {
				biomeScoresView(candidates).text(cmd.OutOrStdout())
				fmt.Fprintf(cmd.OutOrStdout(), "resolved: %s (%.3f)\n", resolved.Biome, resolved.Score)
				return nil
			}
			return outputResult(cmd.OutOrStdout(), map[string]interface{}{
				"candidates": candidates,
				"resolved":   resolved,
			})
		},
	}
	classify.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees")
	classify.Flags().Float64Var(&lon, "lon", 0, "Longitude in degrees")
	classify.Flags().Float64Var(&elevation, "elevation", 0, "Elevation in metres")
	classify.Flags().Float64Var(&threshold, "threshold", biotica.DefaultTransitionThreshold, "Minimum lead of the top candidate")

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the profiles as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry()
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return reg.Save(cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := reg.Save(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "-", "Output file (- for stdout)")

	cmd.AddCommand(list, show, similar, classify, export)
	return cmd
}
