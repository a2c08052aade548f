package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"siteprobe/internal/cli"
	"siteprobe/internal/notify"
	"siteprobe/internal/runner"
	"siteprobe/internal/suite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scored float64

func (s scored) Score() (float64, bool) { return float64(s), true }

type staticCollector []string

func (c staticCollector) Collect(context.Context, string) []string { return c }

func fakeRegistry(t *testing.T) *suite.Registry {
	t.Helper()
	var entries []suite.Entry
	for _, name := range suite.Known {
		entries = append(entries, suite.Entry{Name: name, Run: func(context.Context, string) (suite.Payload, error) {
			return scored(75), nil
		}})
	}
	reg, err := suite.NewRegistry(entries)
	require.NoError(t, err)
	return reg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmdForTest(
		runner.WithRegistry(fakeRegistry(t)),
		runner.WithCollector(staticCollector{"https://example.com/", "https://example.com/about"}),
	)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "siteprobe dev")
}

func TestSuitesCommand(t *testing.T) {
	out, err := execute(t, "suites")
	require.NoError(t, err)
	for _, n := range suite.Known {
		assert.Contains(t, out, string(n))
	}
}

func TestRunCommand_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "run", "example.com", "--suites", "seo,headers", "--json", "--out", dir, "--log-level", "error")
	require.NoError(t, err)

	var rep struct {
		Site     string         `json:"site"`
		URLCount int            `json:"urlCount"`
		Results  map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "https://example.com", rep.Site)
	assert.Equal(t, 2, rep.URLCount)
	assert.Len(t, rep.Results, 2)
	assert.Contains(t, rep.Results, "seo")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))
}

func TestRunCommand_TextOutput(t *testing.T) {
	out, err := execute(t, "run", "https://example.com", "--suites", "accessibility", "--no-progress", "--out", t.TempDir(), "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/about")
	assert.Contains(t, out, "accessibility")
}

func TestRunCommand_UnknownSuite(t *testing.T) {
	_, err := execute(t, "run", "example.com", "--suites", "spelling", "--log-level", "error")
	var unknown *suite.UnknownSuiteError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, cli.ExitFailure, cli.ExitCode(err))
}

func TestRunCommand_MissingSite(t *testing.T) {
	t.Setenv("SITEPROBE_SITE", "")
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "не указан сайт")
}

func TestRunCommand_EmailWithoutHostIsInvalid(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	_, err := execute(t, "run", "example.com", "--email")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email.host")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, cli.ExitOK, cli.ExitCode(nil))
	assert.Equal(t, cli.ExitFailure, cli.ExitCode(errors.New("boom")))
	delivery := fmt.Errorf("отчет не доставлен: %w", &notify.DeliveryError{Channel: "email", Err: errors.New("smtp down")})
	assert.Equal(t, cli.ExitDelivery, cli.ExitCode(delivery))
}
