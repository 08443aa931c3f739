package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gurumnet/ci-jobs/src/template"
)

var listTemplates bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the selected job names in processing order",
	Long: `Print the name of every selected job, one per line, in the order a sync
would process them. Nothing is rendered and the server is not contacted.

With --templates the available job template ids are printed instead.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&selectRegexp, "select-jobs-regexp", "", "limit the list to jobs whose name matches the regular expression at its start")
	listCmd.Flags().StringSliceVar(&selectNames, "select-jobs", nil, "limit the list to these job names (comma-separated)")
	listCmd.Flags().StringVar(&selectGlob, "select-jobs-glob", "", "limit the list to jobs whose name matches the glob")
	listCmd.Flags().BoolVar(&listTemplates, "templates", false, "list the job template ids instead of jobs")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if listTemplates {
		return runListTemplates(cmd)
	}

	sel, err := newSelector()
	if err != nil {
		return err
	}
	planner, err := newPlanner(cfg)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	n := 0
	for c := range planner.Candidates() {
		if !sel.Match(c.Name) {
			continue
		}
		fmt.Fprintln(w, c.Name)
		n++
	}
	if n == 0 {
		log.Warn("no job matched the selection")
	}
	return nil
}

func runListTemplates(cmd *cobra.Command) error {
	engine, err := template.New(cfg.TemplateDir)
	if err != nil {
		return err
	}
	ids, err := engine.Templates()
	if err != nil {
		return fmt.Errorf("listing templates: %w", err)
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
