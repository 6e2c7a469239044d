package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Set up and analyze NER datasets",
	Long:  "Format raw NER corpora into normalized training files and analyze them",
}

var datasetSetUpCmd = &cobra.Command{
	Use:   "set-up",
	Short: "Format a raw corpus for training",
	Long: `Parse the raw files of a dataset, normalize tokens and tags, carve a
validation split if the corpus ships without one, and write the formatted
phase files plus the NER tag mapping.`,
	Example: `  # Format the CoNLL-2003 corpus
  nerbox dataset set-up --dataset conll2003

  # Collapse BIO tags and use 5% of train for validation
  nerbox dataset set-up --dataset swedish_ner_corpus --modify --val-fraction 0.05`,
	RunE: setUpDataset,
}

var datasetAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show statistics of a formatted dataset",
	RunE:  analyzeDataset,
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetSetUpCmd)
	datasetCmd.AddCommand(datasetAnalyzeCmd)

	// Set-up command flags
	datasetSetUpCmd.Flags().String("dataset", "", "Dataset name (required)")
	datasetSetUpCmd.Flags().Bool("modify", false, "Apply corpus-specific tag simplifications")
	datasetSetUpCmd.Flags().Float64("val-fraction", 0.1, "Fraction of train carved into validation when the corpus has no validation split")
	datasetSetUpCmd.Flags().Bool("verbose", false, "Log per-phase details")
	datasetSetUpCmd.MarkFlagRequired("dataset")

	// Analyze command flags
	datasetAnalyzeCmd.Flags().String("dataset", "", "Dataset name (required)")
	datasetAnalyzeCmd.Flags().Bool("verbose", false, "Log per-tag counts")
	datasetAnalyzeCmd.MarkFlagRequired("dataset")
}

func setUpDataset(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	// Parse flags
	name, _ := cmd.Flags().GetString("dataset")
	modify, _ := cmd.Flags().GetBool("modify")
	valFraction, _ := cmd.Flags().GetFloat64("val-fraction")
	verbose, _ := cmd.Flags().GetBool("verbose")

	result, err := client.SetUpDataset(name, modify, valFraction, verbose)
	if err != nil {
		return err
	}

	fmt.Printf("Successfully set up dataset: %s\n", result.Dataset)
	for _, phase := range []string{"train", "val", "test"} {
		if count, ok := result.Sentences[phase]; ok {
			fmt.Printf("  %s: %d sentences\n", phase, count)
		}
	}
	fmt.Printf("  tags: %v\n", result.Tags)
	fmt.Printf("  output: %s\n", result.OutputDir)
	return nil
}

func analyzeDataset(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("dataset")
	verbose, _ := cmd.Flags().GetBool("verbose")

	analysis, err := client.AnalyzeData(name, verbose)
	if err != nil {
		return err
	}

	phases := make([]string, 0, len(analysis.Phases))
	for phase := range analysis.Phases {
		phases = append(phases, phase)
	}
	sort.Strings(phases)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Dataset: %s\n", analysis.Dataset)
	fmt.Fprintln(w, "PHASE\tSENTENCES\tTOKENS\tTAGS")
	for _, phase := range phases {
		stats := analysis.Phases[phase]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", phase, stats.Sentences, stats.Tokens, len(stats.TagCounts))
	}
	return w.Flush()
}
