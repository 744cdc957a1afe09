package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bundledCatalog = filepath.Join("..", "..", "catalog")

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range []string{"validate", "score", "health"} {
		assert.True(t, names[name], "missing command %s", name)
	}
}

func TestValidateBundledCatalog(t *testing.T) {
	if _, err := os.Stat(bundledCatalog); os.IsNotExist(err) {
		t.Skip("catalog directory not found, skipping")
	}

	out, err := execute(t, "validate", bundledCatalog)
	require.NoError(t, err)
	assert.Contains(t, out, "3 blocks valid")
}

func TestValidateReportsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\ntitle: Bad\n"), 0o644))

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL")
}

func TestScore(t *testing.T) {
	if _, err := os.Stat(bundledCatalog); os.IsNotExist(err) {
		t.Skip("catalog directory not found, skipping")
	}

	answers := filepath.Join(t.TempDir(), "answers.json")
	require.NoError(t, os.WriteFile(answers, []byte(`{
		"hygiene": {"hygiene_log": "hygiene_log_yes", "hygiene_training": "hygiene_training_no"}
	}`), 0o644))

	out, err := execute(t, "score", "--catalog", bundledCatalog, answers)
	require.NoError(t, err)
	assert.Contains(t, out, "Overall efficiency: 50%")
	assert.Contains(t, out, "hygiene:hygiene_training_no")
	assert.Contains(t, out, "+50%")
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"status":"healthy"}}`))
	}))
	defer ts.Close()

	out, err := execute(t, "health", "--server", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "is healthy")
}
