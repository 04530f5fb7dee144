package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a deep search",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntP("max-results", "n", 0, "Maximum number of results")
	searchCmd.Flags().String("type", "", "Search type: all, web, proprietary, news")
	searchCmd.Flags().Bool("fast", false, "Fast mode")
	searchCmd.Flags().Float64("max-price", 0, "Maximum price per thousand retrievals")
	searchCmd.Flags().Float64("relevance", 0, "Minimum relevance score")
	searchCmd.Flags().StringSlice("include", nil, "Only these sources")
	searchCmd.Flags().StringSlice("exclude", nil, "Skip these sources")
	searchCmd.Flags().String("category", "", "Category hint")
	searchCmd.Flags().String("country", "", "Two-letter country code")
	searchCmd.Flags().String("from", "", "Start date, YYYY-MM-DD")
	searchCmd.Flags().String("to", "", "End date, YYYY-MM-DD")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	req := valyu.NewSearchRequest(strings.Join(args, " "))

	if n, _ := flags.GetInt("max-results"); n > 0 {
		req = req.WithMaxResults(n)
	}
	if t, _ := flags.GetString("type"); t != "" {
		req = req.WithSearchType(t)
	}
	if flags.Changed("fast") {
		fast, _ := flags.GetBool("fast")
		req = req.WithFastMode(fast)
	}
	if p, _ := flags.GetFloat64("max-price"); p > 0 {
		req = req.WithMaxPrice(p)
	}
	if r, _ := flags.GetFloat64("relevance"); r > 0 {
		req = req.WithRelevanceThreshold(r)
	}
	if s, _ := flags.GetStringSlice("include"); len(s) > 0 {
		req = req.WithIncludedSources(s...)
	}
	if s, _ := flags.GetStringSlice("exclude"); len(s) > 0 {
		req = req.WithExcludedSources(s...)
	}
	if c, _ := flags.GetString("category"); c != "" {
		req = req.WithCategory(c)
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

	resp, err := a.research.Search(cmd.Context(), req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
