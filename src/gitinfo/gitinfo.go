// Package gitinfo reads the working checkout to derive defaults for the CI
// scripts repository and branch.
package gitinfo

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info is what the checkout says about itself. Empty fields are unknown.
type Info struct {
	OriginURL string
	Branch    string
}

// branchEnv lists CI variables consulted when HEAD is detached, in order.
var branchEnv = []string{"GIT_BRANCH", "CI_COMMIT_REF_NAME", "GITHUB_HEAD_REF", "GITHUB_REF_NAME"}

// Detect inspects the repository containing dir. A directory outside any git
// repository yields an empty Info and no error.
func Detect(dir string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Info{}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("opening git repository at %s: %w", dir, err)
	}

	var info Info
	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.OriginURL = urls[0]
		}
	} else if !errors.Is(err, git.ErrRemoteNotFound) {
		return Info{}, fmt.Errorf("reading origin remote: %w", err)
	}

	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return Info{}, fmt.Errorf("reading HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		info.Branch = head.Target().Short()
	} else {
		info.Branch = branchFromEnv()
	}
	return info, nil
}

func branchFromEnv() string {
	for _, key := range branchEnv {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			// Jenkins reports origin/<branch>.
			return strings.TrimPrefix(v, "origin/")
		}
	}
	return ""
}

// Or returns value, or fallback when value is empty.
func Or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
