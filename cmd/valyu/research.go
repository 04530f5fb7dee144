package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Manage DeepResearch tasks",
}

var researchCreateCmd = &cobra.Command{
	Use:   "create <query>",
	Short: "Start a research task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResearchCreate,
}

var researchStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show task status",
	Args:  cobra.ExactArgs(1),
	RunE:  runResearchStatus,
}

var researchWaitCmd = &cobra.Command{
	Use:   "wait <task-id>",
	Short: "Poll until the task finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runResearchWait,
}

var researchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks of an API key",
	Args:  cobra.NoArgs,
	RunE:  runResearchList,
}

var researchUpdateCmd = &cobra.Command{
	Use:   "update <task-id> <instruction>",
	Short: "Add an instruction to a running task",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runResearchUpdate,
}

var researchCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runResearchCancel,
}

var researchDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runResearchDelete,
}

func init() {
	researchCreateCmd.Flags().String("mode", string(valyu.ModeLite), "Research mode: lite, heavy")
	researchCreateCmd.Flags().StringSlice("format", nil, "Output formats, e.g. markdown,pdf")
	researchCreateCmd.Flags().String("strategy", "", "Research strategy instructions")
	researchCreateCmd.Flags().StringSlice("url", nil, "URLs to include as sources")
	researchCreateCmd.Flags().String("search-type", "", "Search type: all, web, proprietary, news")
	researchCreateCmd.Flags().StringSlice("include", nil, "Only these sources")
	researchCreateCmd.Flags().StringSlice("exclude", nil, "Skip these sources")
	researchCreateCmd.Flags().String("webhook", "", "Webhook URL called on completion")
	researchCreateCmd.Flags().Bool("wait", false, "Wait for the task to finish")
	addWaitFlags(researchCreateCmd)

	addWaitFlags(researchWaitCmd)

	researchListCmd.Flags().String("api-key-id", "", "API key id (default $VALYU_API_KEY_ID)")
	researchListCmd.Flags().Int("limit", 0, "Maximum number of tasks")

	researchCmd.AddCommand(
		researchCreateCmd,
		researchStatusCmd,
		researchWaitCmd,
		researchListCmd,
		researchUpdateCmd,
		researchCancelCmd,
		researchDeleteCmd,
	)
	rootCmd.AddCommand(researchCmd)
}

func addWaitFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("poll", valyu.DefaultPollInterval, "Poll interval")
	cmd.Flags().Duration("max-wait", 0, "Give up after this long (default by mode)")
}

func runResearchCreate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	mode, _ := flags.GetString("mode")
	req := valyu.TaskRequest{
		Query: strings.Join(args, " "),
		Mode:  valyu.Mode(mode),
	}
	if formats, _ := flags.GetStringSlice("format"); len(formats) > 0 {
		req.OutputFormats = valyu.FormatNames(formats...)
	}
	req.Strategy, _ = flags.GetString("strategy")
	req.URLs, _ = flags.GetStringSlice("url")
	req.WebhookURL, _ = flags.GetString("webhook")

	searchType, _ := flags.GetString("search-type")
	include, _ := flags.GetStringSlice("include")
	exclude, _ := flags.GetStringSlice("exclude")
	if searchType != "" || len(include) > 0 || len(exclude) > 0 {
		req.Search = &valyu.TaskSearchConfig{
			SearchType:      searchType,
			IncludedSources: include,
			ExcludedSources: exclude,
		}
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.client.CreateTask(cmd.Context(), req)
	if err != nil {
		return err
	}

	if wait, _ := flags.GetBool("wait"); !wait {
		return printJSON(cmd.OutOrStdout(), task)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "task %s created, waiting\n", task.ID)
	return waitAndPrint(cmd, a, task.ID, req.Mode)
}

func runResearchStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.client.TaskStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), task)
}

func runResearchWait(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return waitAndPrint(cmd, a, args[0], "")
}

func waitAndPrint(cmd *cobra.Command, a *app, taskID string, mode valyu.Mode) error {
	poll, _ := cmd.Flags().GetDuration("poll")
	maxWait, _ := cmd.Flags().GetDuration("max-wait")
	if maxWait <= 0 {
		maxWait = a.cfg.Research.MaxWait
	}
	if maxWait <= 0 {
		maxWait = valyu.DefaultMaxWaitFor(mode)
	}

	stderr := cmd.ErrOrStderr()
	task, err := a.client.WaitForTask(cmd.Context(), taskID, valyu.WaitOptions{
		PollInterval: poll,
		MaxWait:      maxWait,
		OnUpdate: func(t *valyu.Task) {
			if t.Progress != nil && t.Progress.TotalSteps > 0 {
				fmt.Fprintf(stderr, "%s: step %d/%d\n", t.Status, t.Progress.CurrentStep, t.Progress.TotalSteps)
				return
			}
			fmt.Fprintf(stderr, "%s\n", t.Status)
		},
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), task)
}

func runResearchList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	keyID, _ := cmd.Flags().GetString("api-key-id")
	if keyID == "" {
		keyID = a.cfg.Valyu.APIKeyID
	}
	if keyID == "" {
		return fmt.Errorf("--api-key-id or VALYU_API_KEY_ID is required")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	list, err := a.client.ListTasks(cmd.Context(), keyID, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), list)
}

func runResearchUpdate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.client.UpdateTask(cmd.Context(), args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func runResearchCancel(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.client.CancelTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func runResearchDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.client.DeleteTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
