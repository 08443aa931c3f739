package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gurumnet/ci-jobs/src/config"
	"github.com/gurumnet/ci-jobs/src/gitinfo"
	"github.com/gurumnet/ci-jobs/src/matrix"
)

// Job selection flags, shared by the sync and list commands.
var (
	selectRegexp string
	selectNames  []string
	selectGlob   string
)

// Script location overrides, shared by every command that renders.
var (
	scriptsRepository   string
	scriptsBranch       string
	scriptsFromCheckout bool
)

func newSelector() (matrix.Selector, error) {
	return matrix.NewSelector(matrix.SelectOptions{
		Regexp: selectRegexp,
		Names:  selectNames,
		Glob:   selectGlob,
	})
}

// addScriptsFlags registers the CI scripts location flags on cmd.
func addScriptsFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&scriptsRepository, "ci-scripts-repository", "", "repository the jobs clone their CI scripts from (default: "+config.DefaultScriptsRepository+")")
	f.StringVar(&scriptsBranch, "ci-scripts-default-branch", "", "default branch of the CI scripts repository, a job parameter (default: "+config.DefaultScriptsBranch+")")
	f.BoolVar(&scriptsFromCheckout, "ci-scripts-from-checkout", false, "take the scripts repository and branch from the origin remote and branch of the git checkout in the working directory")
}

// resolveScripts fills the CI scripts location. Precedence: flag, the
// working checkout when --ci-scripts-from-checkout is set, config file,
// built-in default.
func resolveScripts(c *config.Config) error {
	if scriptsFromCheckout && (scriptsRepository == "" || scriptsBranch == "") {
		wd, err := os.Getwd()
		if err != nil {
			return config.Precondition(err, "locating the git checkout")
		}
		info, err := gitinfo.Detect(wd)
		if err != nil {
			return config.Precondition(err, "reading the git checkout")
		}
		if info.OriginURL == "" && info.Branch == "" {
			return &config.PreconditionError{Reason: fmt.Sprintf("--ci-scripts-from-checkout: no git checkout with an origin or branch at %s", wd)}
		}
		c.Scripts.Repository = gitinfo.Or(info.OriginURL, c.Scripts.Repository)
		c.Scripts.DefaultBranch = gitinfo.Or(info.Branch, c.Scripts.DefaultBranch)
	}
	c.Scripts.Repository = gitinfo.Or(scriptsRepository, c.Scripts.Repository)
	c.Scripts.DefaultBranch = gitinfo.Or(scriptsBranch, c.Scripts.DefaultBranch)

	log.WithFields(logrus.Fields{
		"repository": c.Scripts.Repository,
		"branch":     c.Scripts.DefaultBranch,
	}).Debug("ci scripts")
	return nil
}

// newPlanner builds the planner over the loaded config.
func newPlanner(c *config.Config) (*matrix.Planner, error) {
	if err := resolveScripts(c); err != nil {
		return nil, err
	}
	base, err := matrix.NewBase(c.BaseValues())
	if err != nil {
		return nil, err
	}
	return matrix.NewPlanner(base, c.Matrix, c.Jobs), nil
}
