package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerbox/nerbox/internal/api"
	"github.com/nerbox/nerbox/internal/config"
	"github.com/nerbox/nerbox/internal/models"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an experiment",
	Long: `Resolve a named experiment configuration, execute its hyperparameter
trials, and report the best run. A failed trial never aborts its siblings.`,
	Example: `  # Run every trial of an experiment
  nerbox run --experiment exp_default

  # Run a single named run section on the GPU with half precision
  nerbox run --experiment exp_default --run-name runA --device gpu --fp16`,
	RunE: runExperiment,
}

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Inspect experiments and their results",
	Long:  "Inspect experiment configurations, runs, and best models",
}

var experimentShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show an experiment configuration",
	Long:  "Print the experiment's config file without executing anything",
	RunE:  showExperiment,
}

var experimentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known experiments",
	RunE:  listExperiments,
}

var experimentResultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show an experiment's runs and best run",
	RunE:  experimentResults,
}

var experimentBestRunsCmd = &cobra.Command{
	Use:   "best-runs",
	Short: "Show the best run of every experiment",
	RunE:  experimentBestRuns,
}

var experimentBestModelCmd = &cobra.Command{
	Use:   "best-model",
	Short: "Print the best run's model checkpoint location",
	RunE:  experimentBestModel,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(experimentCmd)
	experimentCmd.AddCommand(experimentShowCmd)
	experimentCmd.AddCommand(experimentListCmd)
	experimentCmd.AddCommand(experimentResultsCmd)
	experimentCmd.AddCommand(experimentBestRunsCmd)
	experimentCmd.AddCommand(experimentBestModelCmd)

	// Run command flags
	runCmd.Flags().String("experiment", "", "Experiment name (required)")
	runCmd.Flags().String("run-name", "", "Run section to execute, or run group name (default: generated)")
	runCmd.Flags().String("device", "", "Device override (cpu/gpu)")
	runCmd.Flags().Bool("fp16", false, "Half-precision override")
	runCmd.MarkFlagRequired("experiment")

	for _, cmd := range []*cobra.Command{experimentShowCmd, experimentResultsCmd, experimentBestModelCmd} {
		cmd.Flags().String("experiment", "", "Experiment name (required)")
		cmd.MarkFlagRequired("experiment")
	}
}

func newClient() (*api.Client, error) {
	cfg := config.New()
	client, err := api.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func runExperiment(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	// Parse flags
	name, _ := cmd.Flags().GetString("experiment")
	runName, _ := cmd.Flags().GetString("run-name")
	device, _ := cmd.Flags().GetString("device")

	opts := api.RunOptions{RunName: runName, Device: device}
	if cmd.Flags().Changed("fp16") {
		fp16, _ := cmd.Flags().GetBool("fp16")
		opts.FP16 = &fp16
	}

	results, err := client.RunExperiment(cmd.Context(), name, opts)
	if err != nil {
		return err
	}

	printResults(results)
	return nil
}

func showExperiment(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("experiment")
	rendered, err := client.ShowExperimentConfig(name)
	if err != nil {
		return err
	}

	fmt.Print(rendered)
	if !strings.HasSuffix(rendered, "\n") {
		fmt.Println()
	}
	return nil
}

func listExperiments(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	experiments, err := client.GetExperiments(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXPERIMENT\tCONFIG\tRUNS")
	for _, info := range experiments {
		hasConfig := "yes"
		if !info.HasConfig {
			hasConfig = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", info.Name, hasConfig, info.Runs)
	}
	return w.Flush()
}

func experimentResults(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("experiment")
	results, err := client.GetExperimentResults(cmd.Context(), name)
	if err != nil {
		return err
	}

	printResults(results)
	return nil
}

func experimentBestRuns(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	bestRuns, err := client.GetExperimentsBestRuns(cmd.Context())
	if err != nil {
		return err
	}

	names := make([]string, 0, len(bestRuns))
	for name := range bestRuns {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXPERIMENT\tBEST RUN\tMETRIC\tVALUE\tARTIFACT")
	for _, name := range names {
		best := bestRuns[name]
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%s\n", name, best.RunID, best.Metric, best.Value, best.ArtifactPath)
	}
	return w.Flush()
}

func experimentBestModel(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("experiment")
	path, err := client.GetBestModel(cmd.Context(), name)
	if err != nil {
		return err
	}

	// Output only the path for shell scripting
	fmt.Println(path)
	return nil
}

func printResults(results *models.ExperimentResults) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Experiment: %s (metric: %s)\n", results.ExperimentName, results.Metric)
	fmt.Fprintln(w, "RUN\tSTATUS\t"+strings.ToUpper(results.Metric)+"\tEPOCHS\tREASON")
	for _, run := range results.Runs {
		value := "-"
		if v, ok := run.Metrics[results.Metric]; ok {
			value = fmt.Sprintf("%.4f", v)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", run.ID, run.Status, value, run.Epochs, run.Reason)
	}
	if results.BestRun != nil {
		fmt.Fprintf(w, "Best run: %s (%s = %.4f)\n", results.BestRun.ID, results.Metric, results.BestRun.Metrics[results.Metric])
		fmt.Fprintf(w, "Best model: %s\n", results.BestArtifact)
	}
	w.Flush()
}
