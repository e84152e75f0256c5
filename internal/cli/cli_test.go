package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.Subset(t, names, []string{"run", "export", "runs", "version"})
}

func TestRunRejectsMissingDataDir(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "sk-test")
	_, err := execute(t, "run")
	require.Error(t, err)
	require.Contains(t, err.Error(), "data_dir")
}

func TestRunRejectsMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := execute(t, "run", "--data", t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "sk-test")
	_, err := execute(t, "run", "--data", t.TempDir(), "--format", "parquet")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parquet")
}

func TestVersionPrints(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, Version)
}

func TestRunRejectsPositionalArgs(t *testing.T) {
	_, err := execute(t, "run", "stray")
	require.Error(t, err)
}
