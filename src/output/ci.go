package output

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gurumnet/ci-jobs/src/runner"
)

// CI environment detection.

func IsCI() bool {
	return os.Getenv("CI") == "true" || os.Getenv("JENKINS_URL") != ""
}

func IsGitLabCI() bool {
	return os.Getenv("GITLAB_CI") == "true"
}

// GitLab collapsible section helpers.

func SectionStart(w io.Writer, id, name string) {
	if !IsGitLabCI() {
		return
	}
	ts := time.Now().Unix()
	fmt.Fprintf(w, "\033[0Ksection_start:%d:%s\r\033[0K%s\n", ts, id, name)
}

func SectionEnd(w io.Writer, id string) {
	if !IsGitLabCI() {
		return
	}
	ts := time.Now().Unix()
	fmt.Fprintf(w, "\033[0Ksection_end:%d:%s\r\033[0K\n", ts, id)
}

// SectionStartCollapsed starts a section that is collapsed by default.
func SectionStartCollapsed(w io.Writer, id, name string) {
	if !IsGitLabCI() {
		return
	}
	ts := time.Now().Unix()
	fmt.Fprintf(w, "\033[0Ksection_start:%d:%s[collapsed=true]\r\033[0K%s\n", ts, id, name)
}

// JUnit XML types for CI test reporting.

type JUnitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []JUnitTestSuite `xml:"testsuite"`
}

type JUnitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitFile is the report file name inside the report directory.
const JUnitFile = "ci-jobs.xml"

// BuildSyncJUnit converts a run summary to JUnit. Each platform becomes a
// test suite and each processed job a test case; failed jobs are failures.
func BuildSyncJUnit(sum runner.Summary, elapsed time.Duration) JUnitTestSuites {
	root := JUnitTestSuites{
		Name: "ci-jobs",
		Time: fmt.Sprintf("%.3f", elapsed.Seconds()),
	}

	index := map[string]int{}
	var durations []time.Duration
	for _, o := range sum.Outcomes {
		i, ok := index[o.Spec.Platform]
		if !ok {
			i = len(root.Suites)
			index[o.Spec.Platform] = i
			root.Suites = append(root.Suites, JUnitTestSuite{Name: "ci-jobs/" + o.Spec.Platform})
			durations = append(durations, 0)
		}
		suite := &root.Suites[i]
		durations[i] += o.Duration

		tc := JUnitTestCase{
			Name:      o.Spec.Name,
			Classname: "ci-jobs." + o.Spec.Kind + "." + o.Spec.Platform,
			Time:      fmt.Sprintf("%.3f", o.Duration.Seconds()),
			SystemOut: strings.Join(o.Result.Diff, "\n"),
		}
		if o.Failed() {
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("%s failed", o.Spec.Name),
				Type:    failureType(o.Err),
				Body:    o.Err.Error(),
			}
			suite.Failures++
			root.Failures++
		}
		suite.Cases = append(suite.Cases, tc)
		suite.Tests++
		root.Tests++
	}

	for i, d := range durations {
		root.Suites[i].Time = fmt.Sprintf("%.3f", d.Seconds())
	}
	return root
}

func failureType(err error) string {
	var jerr *runner.JobError
	if errors.As(err, &jerr) {
		return jerr.Stage
	}
	return "error"
}

// WriteSyncJUnit writes the run summary as JUnit XML into dir.
func WriteSyncJUnit(dir string, sum runner.Summary, elapsed time.Duration) (err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}

	path := filepath.Join(dir, JUnitFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	return writeJUnit(f, BuildSyncJUnit(sum, elapsed))
}

func writeJUnit(w io.Writer, suites JUnitTestSuites) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing junit xml: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(suites); err != nil {
		return fmt.Errorf("encoding junit xml: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("writing junit xml: %w", err)
	}
	return nil
}

// CIHeader prints a compact pipeline context block at the start of a CI run.
func CIHeader(w io.Writer) {
	if !IsCI() {
		return
	}
	parts := []string{}
	if sha := os.Getenv("CI_COMMIT_SHORT_SHA"); sha != "" {
		parts = append(parts, fmt.Sprintf("sha=%s", sha))
	} else if sha := os.Getenv("GIT_COMMIT"); sha != "" && len(sha) >= 8 {
		parts = append(parts, fmt.Sprintf("sha=%s", sha[:8]))
	}
	if pipe := os.Getenv("CI_PIPELINE_ID"); pipe != "" {
		parts = append(parts, fmt.Sprintf("pipeline=%s", pipe))
	}
	if build := os.Getenv("BUILD_TAG"); build != "" {
		parts = append(parts, fmt.Sprintf("build=%s", build))
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, "  ci: %s\n", strings.Join(parts, "  "))
	}
}
