package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearBranchEnv(t *testing.T) {
	t.Helper()
	for _, k := range branchEnv {
		t.Setenv(k, "")
	}
}

func initRepo(t *testing.T, branch string, origin string) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
	require.NoError(t, err)
	if origin != "" {
		_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{origin}})
		require.NoError(t, err)
	}
	return dir, repo
}

func commit(t *testing.T, dir string, repo *git.Repository) plumbing.Hash {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("ci\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README")
	require.NoError(t, err)
	h, err := wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Unix(0, 0)},
	})
	require.NoError(t, err)
	return h
}

func TestDetect(t *testing.T) {
	clearBranchEnv(t)
	dir, _ := initRepo(t, "main", "git@github.com:gurumnet/ci.git")

	sub := filepath.Join(dir, "jobs")
	require.NoError(t, os.Mkdir(sub, 0o755))

	info, err := Detect(sub)
	require.NoError(t, err)
	assert.Equal(t, Info{OriginURL: "git@github.com:gurumnet/ci.git", Branch: "main"}, info)
}

func TestDetect_NoRemote(t *testing.T) {
	clearBranchEnv(t)
	dir, _ := initRepo(t, "feature-x", "")

	info, err := Detect(dir)
	require.NoError(t, err)
	assert.Empty(t, info.OriginURL)
	assert.Equal(t, "feature-x", info.Branch)
}

func TestDetect_DetachedHeadUsesEnvironment(t *testing.T) {
	clearBranchEnv(t)
	dir, repo := initRepo(t, "main", "")
	h := commit(t, dir, repo)
	require.NoError(t, repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, h)))

	info, err := Detect(dir)
	require.NoError(t, err)
	assert.Empty(t, info.Branch)

	t.Setenv("GIT_BRANCH", "origin/release")
	info, err = Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, "release", info.Branch)
}

func TestDetect_OutsideRepository(t *testing.T) {
	info, err := Detect(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Info{}, info)
}

func TestOr(t *testing.T) {
	assert.Equal(t, "a", Or("a", "b"))
	assert.Equal(t, "b", Or("", "b"))
}
