package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "viralscope",
		Short: "Classify social posts as viral vs non-viral for content analysis",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(ingestCmd())
	root.AddCommand(labelCmd())
	root.AddCommand(calibrateCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func ingestCmd() *cobra.Command {
	var files []string
	var dataset string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch post records from configured sources into the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(files, dataset)
		},
	}

	cmd.Flags().StringSliceVar(&files, "file", nil, "extra dataset files to ingest (json or csv)")
	cmd.Flags().StringVar(&dataset, "dataset", "organic", "dataset tag for --file inputs")
	return cmd
}

func labelCmd() *cobra.Command {
	var (
		dataset    string
		jsonOutput bool
		window     int
		multiplier float64
		fallback   bool
	)

	cmd := &cobra.Command{
		Use:   "label",
		Short: "Run the classification engine over a stored dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabel(dataset, jsonOutput, window, multiplier, fallback)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "organic", "dataset to label")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output labeled posts as JSON")
	cmd.Flags().IntVar(&window, "window", 0, "look-back window size (default: from config)")
	cmd.Flags().Float64Var(&multiplier, "multiplier", 0, "viral multiplier (default: from config)")
	cmd.Flags().BoolVar(&fallback, "percentile-fallback", false, "label baseline-less posts against the latest calibrated cutoff")
	return cmd
}

func calibrateCmd() *cobra.Command {
	var (
		adDataset      string
		organicDataset string
		fraction       float64
	)

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Derive top-fraction engagement cutoffs for the ad and organic datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalibrate(adDataset, organicDataset, fraction)
		},
	}

	cmd.Flags().StringVar(&adDataset, "ad", "ad", "ad dataset tag")
	cmd.Flags().StringVar(&organicDataset, "organic", "organic", "organic dataset tag")
	cmd.Flags().Float64Var(&fraction, "fraction", 0, "top fraction (default: from config)")
	return cmd
}

func exportCmd() *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Upload the latest labeled dataset to the warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(dataset)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "organic", "dataset to export")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
