package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rangekeeper/cmd/rangekeeper/commands"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/report"
)

const (
	testConfig = "report:\n  color: never\n"

	planYAML = `ranges:
  - start: 1
    end: 3
    label: standup
  - start: 5
    end: 8
    label: review
  - start: 2
    end: 6
    label: offsite
`
)

type result struct {
	stdout string
	stderr string
	err    error
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// execute runs the root command with an isolated config file.
func execute(t *testing.T, args ...string) result {
	t.Helper()

	cfgPath := writeFile(t, t.TempDir(), "rangekeeper.yaml", testConfig)

	root := commands.NewRootCommand()

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := root.ExecuteContext(context.Background())

	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestCheck_JSONReport(t *testing.T) {
	t.Parallel()

	plan := writeFile(t, t.TempDir(), "plan.yaml", planYAML)

	res := execute(t, "check", "--format", commands.FormatJSON, plan)
	require.NoError(t, res.err)

	var run report.Run

	require.NoError(t, json.Unmarshal([]byte(res.stdout), &run))
	assert.Equal(t, 2, run.Summary.Accepted)
	assert.Equal(t, 1, run.Summary.Rejected)
	require.Len(t, run.Rows, 3)
	assert.Equal(t, report.StatusRejected, run.Rows[2].Status)
	require.NotNil(t, run.Rows[2].BlockedBy)
	assert.Equal(t, "review", run.Rows[2].BlockedBy.Label)
	assert.Equal(t, 5, run.Rows[2].BlockedBy.Line)
	assert.Equal(t, plan, run.Rows[2].Source)
	assert.Contains(t, res.stderr, "range rejected")
}

func TestCheck_StrictFailsOnRejection(t *testing.T) {
	t.Parallel()

	plan := writeFile(t, t.TempDir(), "plan.yaml", planYAML)

	res := execute(t, "check", "--strict", "--quiet", plan)
	require.ErrorIs(t, res.err, commands.ErrRangesRejected)
	assert.Contains(t, res.err.Error(), "1 rejected, 0 invalid")
	assert.Contains(t, res.stdout, "2 accepted, 1 rejected, 0 invalid, 5 covered")
}

func TestCheck_StrictPassesWhenClean(t *testing.T) {
	t.Parallel()

	plan := writeFile(t, t.TempDir(), "plan.csv", "start,end,label\n1,3,a\n3,5,b\n")

	res := execute(t, "check", "--strict", plan)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "2 accepted, 0 rejected, 0 invalid, 4 covered")
}

func TestCheck_MultipleFilesShareOneLedger(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeFile(t, dir, "a.json", `{"ranges": [{"start": 0, "end": 10, "label": "block"}]}`)
	second := writeFile(t, dir, "b.csv", "4,6,inner\n10,12,after\n")

	res := execute(t, "check", "--format", commands.FormatYAML, first, second)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "accepted: 2")
	assert.Contains(t, res.stdout, "rejected: 1")
}

func TestCheck_OutputFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plan := writeFile(t, dir, "plan.yaml", planYAML)
	out := filepath.Join(dir, "report.html")

	res := execute(t, "check", "--format", commands.FormatPlot, "--title", "Team week", "--output", out, plan)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Team week")
}

func TestCheck_MetricsDump(t *testing.T) {
	t.Parallel()

	plan := writeFile(t, t.TempDir(), "plan.yaml", planYAML)

	res := execute(t, "check", "--metrics", "--format", commands.FormatJSON, plan)
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "rangekeeper_calls")
	assert.Contains(t, res.stderr, `op="ledger.reserve"`)
	assert.Contains(t, res.stderr, `outcome="rejected"`)
	assert.Contains(t, res.stderr, "index_size")
}

func TestCheck_InvalidEntriesAreReported(t *testing.T) {
	t.Parallel()

	plan := writeFile(t, t.TempDir(), "plan.csv", "1,3,ok\n5,5,empty\n")

	res := execute(t, "check", "--format", commands.FormatJSON, plan)
	require.NoError(t, res.err)

	var run report.Run

	require.NoError(t, json.Unmarshal([]byte(res.stdout), &run))
	assert.Equal(t, 1, run.Summary.Invalid)
	assert.Equal(t, report.StatusInvalid, run.Rows[1].Status)
	assert.Equal(t, 2, run.Rows[1].Line)
}

func TestCheck_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plan := writeFile(t, dir, "plan.yaml", planYAML)

	res := execute(t, "check", "--format", "xml", plan)
	require.ErrorIs(t, res.err, commands.ErrUnknownReportFormat)

	res = execute(t, "check", filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, res.err, os.ErrNotExist)

	res = execute(t, "check")
	require.Error(t, res.err)
}

func TestCheck_UnknownFormatFailsBeforeIO(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "report.txt")

	// The input does not exist either; the format error must win.
	res := execute(t, "check", "--format", "bogus", "--output", out, filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, res.err, commands.ErrUnknownReportFormat)
	assert.NotErrorIs(t, res.err, os.ErrNotExist)

	_, err := os.Stat(out)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNeighbors(t *testing.T) {
	t.Parallel()

	plan := writeFile(t, t.TempDir(), "plan.yaml", planYAML)

	res := execute(t, "neighbors", plan, "4", "6", "0.5")
	require.NoError(t, res.err)

	lines := strings.Split(res.stdout, "\n")
	assert.Contains(t, res.stdout, `[5, 8) "review"`)
	assert.NotContains(t, res.stdout, "offsite")

	var sawFree bool

	for _, line := range lines {
		if strings.Contains(line, "0.5") {
			sawFree = true

			assert.Contains(t, line, "-")
		}
	}

	assert.True(t, sawFree)
}

func TestNeighbors_BadTime(t *testing.T) {
	t.Parallel()

	plan := writeFile(t, t.TempDir(), "plan.yaml", planYAML)

	res := execute(t, "neighbors", plan, "noon")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `time "noon"`)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	res := execute(t, "version")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "rangekeeper "))
}

func TestInvalidConfigFails(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, t.TempDir(), "bad.yaml", "report:\n  format: xml\n")
	plan := writeFile(t, t.TempDir(), "plan.yaml", planYAML)

	root := commands.NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", cfgPath, "check", plan})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid report format")
}

func TestMCPCommand_Exists(t *testing.T) {
	t.Parallel()

	cmd := commands.NewMCPCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mcp", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	flag := cmd.Flags().Lookup("metrics-addr")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)
}
