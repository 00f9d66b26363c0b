package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modelmeter/modelmeter/pkg/catalog"
)

func newModelsCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the configured model catalog with pricing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(catalogPath)
			if err != nil {
				return err
			}

			list := cat.List()
			if len(list) == 0 {
				fmt.Println("No models configured.")
				return nil
			}

			if cat.RegionName != "" {
				fmt.Printf("Region: %s\n\n", cat.RegionName)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMODEL ID\tPROVIDER\tIN $/1K\tOUT $/1K\tPROFILE")
			for _, d := range list {
				profile := ""
				if d.UseInferenceProfile {
					profile = "pinned"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%.6f\t%.6f\t%s\n",
					d.Name, d.ModelID, d.Provider, d.Pricing.InputPer1K, d.Pricing.OutputPer1K, profile)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", "models.yaml", "path to model catalog file")
	return cmd
}
