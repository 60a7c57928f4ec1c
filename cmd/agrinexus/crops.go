package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aniket-work/autonomous-agri-nexus/internal/config"
	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
)

var cropsCmd = &cobra.Command{
	Use:   "crops",
	Short: "List crop profiles and their optimal ranges",
	Args:  cobra.NoArgs,
	RunE:  runCrops,
}

func runCrops(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	table, err := crops.LoadTable(cfg.CropProfilesFile)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CROP\tNUTRIENT\tMIN\tMAX")
	for _, profile := range table.Profiles() {
		for _, nutrient := range crops.TrackedNutrients {
			r, ok := profile.Range(nutrient)
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%g\t%g\n", profile.Crop, nutrient, r.Min, r.Max)
		}
	}
	return w.Flush()
}
