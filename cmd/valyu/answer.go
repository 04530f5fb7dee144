package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/valyu-go/internal/service"
	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

var answerCmd = &cobra.Command{
	Use:   "answer <question>",
	Short: "Get an answer grounded in search results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnswer,
}

func init() {
	answerCmd.Flags().String("system", "", "System instructions")
	answerCmd.Flags().String("schema", "", "JSON schema file for a structured answer")
	answerCmd.Flags().Bool("validate", false, "Fail when the structured answer does not match --schema")
	answerCmd.Flags().String("type", "", "Search type: all, web, proprietary, news")
	answerCmd.Flags().Bool("fast", false, "Fast mode")
	answerCmd.Flags().Float64("max-price", 0, "Maximum data price")
	answerCmd.Flags().StringSlice("include", nil, "Only these sources")
	answerCmd.Flags().StringSlice("exclude", nil, "Skip these sources")
	answerCmd.Flags().String("country", "", "Two-letter country code")
	answerCmd.Flags().String("from", "", "Start date, YYYY-MM-DD")
	answerCmd.Flags().String("to", "", "End date, YYYY-MM-DD")

	rootCmd.AddCommand(answerCmd)
}

func runAnswer(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	req := valyu.NewAnswerRequest(strings.Join(args, " "))

	if s, _ := flags.GetString("system"); s != "" {
		req = req.WithSystemInstructions(s)
	}

	var schema json.RawMessage
	if path, _ := flags.GetString("schema"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read schema: %w", err)
		}
		if !json.Valid(data) {
			return fmt.Errorf("schema %s is not valid JSON", path)
		}
		schema = data
		req = req.WithStructuredOutput(schema)
	}
	validate, _ := flags.GetBool("validate")
	if validate && schema == nil {
		return fmt.Errorf("--validate needs --schema")
	}

	if t, _ := flags.GetString("type"); t != "" {
		req = req.WithSearchType(t)
	}
	if flags.Changed("fast") {
		fast, _ := flags.GetBool("fast")
		req = req.WithFastMode(fast)
	}
	if p, _ := flags.GetFloat64("max-price"); p > 0 {
		req = req.WithDataMaxPrice(p)
	}
	if s, _ := flags.GetStringSlice("include"); len(s) > 0 {
		req = req.WithIncludedSources(s...)
	}
	if s, _ := flags.GetStringSlice("exclude"); len(s) > 0 {
		req = req.WithExcludedSources(s...)
	}
	if c, _ := flags.GetString("country"); c != "" {
		req = req.WithCountryCode(c)
	}
	from, _ := flags.GetString("from")
	to, _ := flags.GetString("to")
	if from != "" || to != "" {
		req = req.WithDateRange(from, to)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.research.Answer(cmd.Context(), req)
	if err != nil {
		return err
	}

	if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
		return err
	}

	if validate {
		return service.ValidateAnswer(schema, resp)
	}
	return nil
}
