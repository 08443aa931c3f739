package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gurumnet/ci-jobs/src/config"
	"github.com/gurumnet/ci-jobs/src/template"
)

var renderCmd = &cobra.Command{
	Use:   "render <job-name>",
	Short: "Print the rendered document of one job",
	Long: `Render one job exactly as a sync would upload it and print the document.
Nothing is sent to the server.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runRender,
}

func init() {
	addScriptsFlags(renderCmd)

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	planner, err := newPlanner(cfg)
	if err != nil {
		return err
	}
	c, ok := planner.Lookup(args[0])
	if !ok {
		return &config.PreconditionError{Reason: fmt.Sprintf("no job named %q in the matrix (see ci-jobs list)", args[0])}
	}

	engine, err := template.New(cfg.TemplateDir)
	if err != nil {
		return err
	}
	spec, err := planner.Build(c)
	if err != nil {
		return err
	}
	doc, err := engine.Expand(spec.TemplateID, spec.Values)
	if err != nil {
		return fmt.Errorf("job %s: %w", spec.Name, err)
	}

	_, err = cmd.OutOrStdout().Write(doc)
	return err
}
