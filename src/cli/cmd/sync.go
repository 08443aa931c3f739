package cmd

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gurumnet/ci-jobs/src/config"
	"github.com/gurumnet/ci-jobs/src/jenkins"
	"github.com/gurumnet/ci-jobs/src/jobsync"
	"github.com/gurumnet/ci-jobs/src/output"
	"github.com/gurumnet/ci-jobs/src/runner"
	"github.com/gurumnet/ci-jobs/src/template"
)

var (
	jenkinsURL   string
	jenkinsUser  string
	minVersion   string
	commit       bool
	contextLines nonNegativeInt
	allowSecrets bool
	junitDir     string
)

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&jenkinsURL, "jenkins-url", "u", "", "URL of the Jenkins server the jobs are synchronized with (default: "+config.DefaultJenkinsURL+")")
	f.StringVar(&jenkinsUser, "jenkins-user", "", "Jenkins user for basic auth (default: $JENKINS_USER); the token is read from $JENKINS_API_TOKEN")
	f.StringVar(&minVersion, "min-jenkins-version", "", "semver constraint the server version must satisfy (default: "+config.DefaultJenkinsMinVersion+")")
	f.BoolVar(&commit, "commit", false, "actually modify the Jenkins jobs instead of only doing a dry run")
	f.StringVar(&selectRegexp, "select-jobs-regexp", "", "limit the run to jobs whose name matches the regular expression at its start")
	f.StringSliceVar(&selectNames, "select-jobs", nil, "limit the run to these job names (comma-separated)")
	f.StringVar(&selectGlob, "select-jobs-glob", "", "limit the run to jobs whose name matches the glob")
	f.Var(&contextLines, "context-lines", "number of context lines shown around differences between old and new jobs")
	f.BoolVar(&allowSecrets, "allow-secrets", false, "upload documents even when they look like they contain credentials")
	f.StringVar(&junitDir, "junit-dir", "", "write a JUnit report of the run into this directory")
	addScriptsFlags(rootCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	// Everything that can fail locally fails before the server is contacted.
	sel, err := newSelector()
	if err != nil {
		return err
	}
	planner, err := newPlanner(cfg)
	if err != nil {
		return err
	}
	engine, err := template.New(cfg.TemplateDir)
	if err != nil {
		return err
	}
	// Unknown templates fail their own jobs; the run still covers the rest.
	for _, j := range cfg.Jobs {
		if err := engine.Has(j.Template); err != nil {
			log.WithField("kind", j.Kind).Warn(err)
		}
	}

	var guard runner.Guard
	if !allowSecrets {
		g, err := runner.NewLeakGuard()
		if err != nil {
			return config.Precondition(err, "secret guard")
		}
		guard = g
	}

	client, err := jenkins.Connect(ctx, jenkins.Options{
		URL:        firstNonEmpty(jenkinsURL, cfg.Jenkins.URL),
		User:       firstNonEmpty(jenkinsUser, os.Getenv("JENKINS_USER"), cfg.Jenkins.User),
		MinVersion: firstNonEmpty(minVersion, cfg.Jenkins.MinVersion),
		Logger:     log,
	})
	if err != nil {
		return err
	}

	mode := jobsync.Preview
	if commit {
		mode = jobsync.Commit
	}

	color := useColor()
	w := cmd.OutOrStdout()
	output.CIHeader(w)
	output.ContextBlock(w, []output.KV{
		{Key: "jenkins", Value: client.URL()},
		{Key: "version", Value: client.Version()},
		{Key: "mode", Value: modeLabel(mode)},
		{Key: "jobs", Value: strconv.Itoa(planner.Len())},
		{Key: "scripts", Value: cfg.Scripts.Repository},
		{Key: "branch", Value: cfg.Scripts.DefaultBranch},
	})

	report := output.NewReport(w, mode, color)
	r := runner.New(runner.Config{
		Planner:  planner,
		Selector: sel,
		Expander: engine,
		Syncer:   jobsync.New(client, jobsync.Options{ContextLines: int(contextLines)}),
		Mode:     mode,
		Guard:    guard,
		Reporter: report.Job,
		Logger:   log,
	})

	start := time.Now()
	sum, runErr := r.Run(ctx)
	elapsed := time.Since(start)
	report.Close(sum, elapsed)

	if junitDir != "" {
		if err := output.WriteSyncJUnit(junitDir, sum, elapsed); err != nil {
			log.WithError(err).Warn("junit report not written")
		}
	}
	if sum.Selected() == 0 {
		log.Warn("no job matched the selection")
	}
	return runErr
}

func modeLabel(m jobsync.Mode) string {
	if m == jobsync.Preview {
		return "dry run (pass --commit to apply)"
	}
	return "commit"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
