package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fast = []string{
	"--delay-rate-limit", "0",
	"--delay-auth", "0",
	"--delay-retrieve", "0",
	"--delay-persist", "0",
}

func TestRun_Completes(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), append([]string{"--count", "10"}, fast...), &stderr)

	require.Equal(t, 0, code, stderr.String())
	out := stderr.String()
	assert.Contains(t, out, "|_| |_|_| |_|___|")
	assert.Contains(t, out, "* Records processed:                      6\n")
	assert.Contains(t, out, "* Records processed (missing info):       3\n")
	assert.Contains(t, out, "    0 | ABC123/00     | Could not find record information online.")
	assert.NotContains(t, out, "\x1b[")
}

func TestRun_FullyResumed(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), append([]string{"-c", "5", "-s", "5"}, fast...), &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stderr.String(), "* Records skipped (pre-existing):         5\n")
	assert.NotContains(t, stderr.String(), "## Errors")
}

func TestRun_InvalidConfiguration(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), []string{"--count", "3", "--skip", "4"}, &stderr)

	assert.Equal(t, exitFault, code)
	assert.Contains(t, stderr.String(), "Error: ")
	assert.Contains(t, stderr.String(), "Hint: --skip must not exceed --count")
	assert.NotContains(t, stderr.String(), "# Report")
}

func TestRun_FileSinkResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	args := append([]string{"--count", "6", "--sink", "file", "--output", path}, fast...)

	var first bytes.Buffer
	require.Equal(t, 0, run(context.Background(), args, &first), first.String())

	var second bytes.Buffer
	code := run(context.Background(), append([]string{"--count", "8", "--resume-from-output", "--sink", "file", "--output", path}, fast...), &second)
	require.Equal(t, 0, code, second.String())
	assert.Contains(t, second.String(), "* Records skipped (pre-existing):         6\n")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8, strings.Count(string(data), "\n"))
}

func TestRun_UnknownFlag(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, exitFault, run(context.Background(), []string{"--bogus"}, &stderr))
	assert.Contains(t, stderr.String(), "unknown flag")
}

func TestRun_LogsEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.env")
	require.NoError(t, os.WriteFile(path, []byte("PSTITLE_CMD_TEST=1\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PSTITLE_CMD_TEST") })

	var stderr bytes.Buffer
	args := append([]string{"--count", "1", "--log-level", "debug", "--env-file", path}, fast...)
	require.Equal(t, 0, run(context.Background(), args, &stderr), stderr.String())
	assert.Contains(t, stderr.String(), "loaded env files")
	assert.Contains(t, stderr.String(), path)

	stderr.Reset()
	args = append([]string{"--count", "1", "--log-level", "debug"}, fast...)
	require.Equal(t, 0, run(context.Background(), args, &stderr), stderr.String())
	assert.Contains(t, stderr.String(), "no .env file found")
}
