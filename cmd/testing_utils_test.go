package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PolarWolf314/stash/internal/audit"
	"github.com/PolarWolf314/stash/internal/configs"
)

// setupCLITest isolates config, audit log and cache for one test and
// returns an empty stash directory.
func setupCLITest(t *testing.T) string {
	t.Helper()

	t.Setenv(configs.ConfigFileEnv, filepath.Join(t.TempDir(), "config.toml"))
	t.Setenv("STASH_CACHE_BACKEND", "memory")
	t.Setenv("NO_COLOR", "1")

	original := *configs.UserStashSettings
	configs.UserStashSettings.UserDataPath = t.TempDir()
	configs.UserStashSettings.HomeDir = t.TempDir()
	t.Cleanup(func() {
		*configs.UserStashSettings = original
		audit.Disabled = false
		ResetGlobalState()
	})

	root := filepath.Join(t.TempDir(), "vault")
	require.NoError(t, os.Mkdir(root, 0700))
	return root
}

// runCLI executes the command tree with args and returns everything written
// to stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ResetGlobalState()
	RootCmd.SetArgs(args)
	return captureOutput(Execute)
}

// runStash is runCLI against root.
func runStash(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--root", root}, args...)...)
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	reader, writer, err := os.Pipe()
	if err != nil {
		return "", err
	}
	os.Stdout = writer
	os.Stderr = writer

	outputChan := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, reader)
		outputChan <- buf.String()
	}()

	runErr := fn()

	writer.Close()
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-outputChan, runErr
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
