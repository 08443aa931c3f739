package jobsync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	jobs     map[string][]byte
	fetchErr error
	writeErr error

	creates []string
	updates []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{jobs: map[string][]byte{}}
}

func (f *fakeClient) JobConfig(_ context.Context, name string) ([]byte, bool, error) {
	if f.fetchErr != nil {
		return nil, false, f.fetchErr
	}
	doc, ok := f.jobs[name]
	return doc, ok, nil
}

func (f *fakeClient) CreateJob(_ context.Context, name string, doc []byte) error {
	f.creates = append(f.creates, name)
	if f.writeErr != nil {
		return f.writeErr
	}
	f.jobs[name] = doc
	return nil
}

func (f *fakeClient) UpdateJob(_ context.Context, name string, doc []byte) error {
	f.updates = append(f.updates, name)
	if f.writeErr != nil {
		return f.writeErr
	}
	f.jobs[name] = doc
	return nil
}

func (f *fakeClient) mutations() int { return len(f.creates) + len(f.updates) }

const jobV1 = `<?xml version='1.1' encoding='UTF-8'?>
<project>
  <description>Linux CI</description>
  <assignedNode>linux</assignedNode>
  <builders>
    <hudson.tasks.Shell>
      <command>echo one</command>
    </hudson.tasks.Shell>
  </builders>
</project>
`

var jobV2 = strings.Replace(jobV1, "echo one", "echo two", 1)

func TestSync_CommitCreatesThenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	s := New(c, Options{})

	res, err := s.Sync(ctx, "ci_linux_foxy", []byte(jobV1), Commit)
	require.NoError(t, err)
	assert.Equal(t, Create, res.Action)
	assert.True(t, res.Applied)
	assert.Equal(t, []string{"ci_linux_foxy"}, c.creates)

	res, err = s.Sync(ctx, "ci_linux_foxy", []byte(jobV1), Commit)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, res.Action)
	assert.False(t, res.Applied)
	assert.Empty(t, res.Diff)
	assert.Equal(t, 1, c.mutations())
}

func TestSync_CommitUpdatesChangedJob(t *testing.T) {
	c := newFakeClient()
	c.jobs["ci_linux_foxy"] = []byte(jobV1)

	res, err := New(c, Options{}).Sync(context.Background(), "ci_linux_foxy", []byte(jobV2), Commit)
	require.NoError(t, err)
	assert.Equal(t, Update, res.Action)
	assert.True(t, res.Applied)
	assert.Equal(t, []string{"ci_linux_foxy"}, c.updates)
	assert.Equal(t, jobV2, string(c.jobs["ci_linux_foxy"]))
}

func TestSync_PreviewNeverMutates(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	c.jobs["ci_linux_rolling"] = []byte(jobV1)
	s := New(c, Options{})

	res, err := s.Sync(ctx, "ci_linux_foxy", []byte(jobV1), Preview)
	require.NoError(t, err)
	assert.Equal(t, Create, res.Action)
	assert.False(t, res.Applied)

	res, err = s.Sync(ctx, "ci_linux_rolling", []byte(jobV2), Preview)
	require.NoError(t, err)
	assert.Equal(t, Update, res.Action)
	assert.Equal(t, Preview, res.Mode)

	res, err = s.Sync(ctx, "ci_linux_rolling", []byte(jobV1), Preview)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, res.Action)

	c.fetchErr = errors.New("connection reset")
	_, err = s.Sync(ctx, "ci_linux_galactic", []byte(jobV1), Preview)
	require.Error(t, err)

	assert.Zero(t, c.mutations())
	assert.Equal(t, jobV1, string(c.jobs["ci_linux_rolling"]))
}

func TestSync_NewJobDiffIsAllAdditions(t *testing.T) {
	res, err := New(newFakeClient(), Options{}).Sync(context.Background(), "ci_linux_foxy", []byte(jobV1), Preview)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Diff), 4)

	assert.Equal(t, "--- remote config", res.Diff[0])
	assert.Equal(t, "+++ new config", res.Diff[1])
	assert.True(t, strings.HasPrefix(res.Diff[2], "@@ -0,0 +1,"), res.Diff[2])
	for _, l := range res.Diff[3:] {
		assert.True(t, strings.HasPrefix(l, "+"), l)
	}
	assert.Len(t, res.Diff[3:], len(Normalize([]byte(jobV1)).Lines))
}

func TestSync_ContextLines(t *testing.T) {
	c := newFakeClient()
	c.jobs["j"] = []byte(jobV1)

	count := func(opts Options) (changed, ctxLines int) {
		res, err := New(c, opts).Sync(context.Background(), "j", []byte(jobV2), Preview)
		require.NoError(t, err)
		for _, l := range res.Diff[3:] {
			if strings.HasPrefix(l, " ") {
				ctxLines++
			} else {
				changed++
			}
		}
		return changed, ctxLines
	}

	changed, ctx0 := count(Options{ContextLines: 0})
	assert.Equal(t, 2, changed)
	assert.Zero(t, ctx0)

	_, ctx1 := count(Options{ContextLines: 1})
	assert.Equal(t, 2, ctx1)

	_, neg := count(Options{ContextLines: -3})
	assert.Zero(t, neg)
}

func TestSync_WhitespaceAndDescriptionDoNotCount(t *testing.T) {
	c := newFakeClient()
	c.jobs["j"] = []byte(jobV1)

	reformatted := `<project><description>Stamped by Jenkins at 12:00</description>` +
		`<assignedNode>linux</assignedNode><builders><hudson.tasks.Shell>` +
		`<command>echo one</command></hudson.tasks.Shell></builders></project>`

	res, err := New(c, Options{}).Sync(context.Background(), "j", []byte(reformatted), Commit)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, res.Action)
	assert.Zero(t, c.mutations())
}

func TestSync_FetchErrorIsSyncError(t *testing.T) {
	c := newFakeClient()
	c.fetchErr = errors.New("boom")

	_, err := New(c, Options{}).Sync(context.Background(), "ci_windows_foxy", []byte(jobV1), Commit)
	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "ci_windows_foxy", serr.JobName)
	assert.Equal(t, OpFetch, serr.Op)
	assert.ErrorIs(t, err, c.fetchErr)
	assert.Zero(t, c.mutations())
}

func TestSync_WriteErrorIsSyncError(t *testing.T) {
	c := newFakeClient()
	c.writeErr = errors.New("forbidden")

	res, err := New(c, Options{}).Sync(context.Background(), "j", []byte(jobV1), Commit)
	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, OpCreate, serr.Op)
	assert.False(t, res.Applied)
}

func TestNormalize(t *testing.T) {
	doc := Normalize([]byte(`<?xml version='1.1' encoding='UTF-8'?>
<project a="1&amp;2">
  <!-- comment -->
  <empty></empty>
  <description>anything <b>here</b></description>
  <nested><leaf>x</leaf></nested>
</project>`))

	require.True(t, doc.XML)
	assert.Equal(t, []string{
		`<project a="1&amp;2">`,
		`  <empty/>`,
		`  <description/>`,
		`  <nested>`,
		`    <leaf>x</leaf>`,
		`  </nested>`,
		`</project>`,
	}, doc.Lines)
}

func TestNormalize_NestedDescriptionIsKept(t *testing.T) {
	doc := Normalize([]byte(`<project><param><description>keep</description></param></project>`))
	require.True(t, doc.XML)
	assert.Contains(t, doc.Lines, "    <description>keep</description>")
}

func TestNormalize_FallsBackToText(t *testing.T) {
	for _, in := range []string{"pipeline {\n  stages {}  \n}\n\n", "<a><b></a>", "<a/><b/>"} {
		doc := Normalize([]byte(in))
		assert.False(t, doc.XML, in)
	}
	assert.Equal(t, []string{"pipeline {", "  stages {}", "}"},
		Normalize([]byte("pipeline {\r\n  stages {}  \r\n}\n\n")).Lines)
}

func TestModeAndActionStrings(t *testing.T) {
	assert.Equal(t, "preview", Preview.String())
	assert.Equal(t, "commit", Commit.String())
	assert.Equal(t, "create", Create.String())
	assert.Equal(t, "update", Update.String())
	assert.Equal(t, "unchanged", Unchanged.String())
}

const scriptJob = `<project>
  <builders>
    <hudson.tasks.Shell>
      <command>set -e
echo one
echo two
echo three
echo "a &amp; b" &gt; out</command>
    </hudson.tasks.Shell>
  </builders>
</project>`

func TestNormalize_MultiLineTextKeepsLines(t *testing.T) {
	doc := Normalize([]byte(scriptJob))
	require.True(t, doc.XML)
	assert.Equal(t, []string{
		`<project>`,
		`  <builders>`,
		`    <hudson.tasks.Shell>`,
		`      <command>set -e`,
		`echo one`,
		`echo two`,
		`echo three`,
		`echo "a &amp; b" &gt; out</command>`,
		`    </hudson.tasks.Shell>`,
		`  </builders>`,
		`</project>`,
	}, doc.Lines)
}

func TestSync_ScriptChangeDiffsOneLine(t *testing.T) {
	c := newFakeClient()
	c.jobs["j"] = []byte(scriptJob)
	local := strings.Replace(scriptJob, "echo two", "echo TWO", 1)

	res, err := New(c, Options{ContextLines: 1}).Sync(context.Background(), "j", []byte(local), Preview)
	require.NoError(t, err)
	assert.Equal(t, Update, res.Action)
	assert.Equal(t, []string{
		"--- remote config",
		"+++ new config",
		"@@ -5,3 +5,3 @@",
		" echo one",
		"-echo two",
		"+echo TWO",
		" echo three",
	}, res.Diff)
	for _, l := range res.Diff {
		assert.NotContains(t, l, "&#xA;")
	}
}
