package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

var contentsCmd = &cobra.Command{
	Use:   "contents <url>...",
	Short: "Extract page contents; more than 10 URLs are split into several calls",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runContents,
}

func init() {
	contentsCmd.Flags().String("length", "", "Response length: short, medium, large, max")
	contentsCmd.Flags().Int("chars", 0, "Response length in characters, overrides --length")
	contentsCmd.Flags().String("effort", "", "Extraction effort: normal, high, auto")
	contentsCmd.Flags().Bool("summary", false, "Summarise each page")
	contentsCmd.Flags().String("summary-prompt", "", "Summarise with these instructions")
	contentsCmd.Flags().String("summary-schema", "", "Summarise into the JSON schema in this file")
	contentsCmd.Flags().Float64("max-price", 0, "Maximum price in dollars")

	rootCmd.AddCommand(contentsCmd)
}

func runContents(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	req := valyu.NewContentsRequest(args...)

	if n, _ := flags.GetInt("chars"); n > 0 {
		req = req.WithCustomResponseLength(n)
	} else if l, _ := flags.GetString("length"); l != "" {
		req = req.WithResponseLength(l)
	}
	if e, _ := flags.GetString("effort"); e != "" {
		req = req.WithExtractEffort(e)
	}

	prompt, _ := flags.GetString("summary-prompt")
	schemaFile, _ := flags.GetString("summary-schema")
	switch {
	case schemaFile != "":
		schema, err := os.ReadFile(schemaFile)
		if err != nil {
			return fmt.Errorf("read summary schema: %w", err)
		}
		req = req.WithSummarySchema(schema)
	case prompt != "":
		req = req.WithSummaryInstructions(prompt)
	case flags.Changed("summary"):
		summary, _ := flags.GetBool("summary")
		req = req.WithSummary(summary)
	}

	if p, _ := flags.GetFloat64("max-price"); p > 0 {
		req = req.WithMaxPriceDollars(p)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.research.Contents(cmd.Context(), req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
