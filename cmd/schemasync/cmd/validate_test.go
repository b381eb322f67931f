package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandStructure(t *testing.T) {
	assert.NotNil(t, validateCmd)
	assert.Equal(t, "validate", validateCmd.Use)
	assert.NotEmpty(t, validateCmd.Short)
	assert.Contains(t, validateCmd.Long, "Example:")
	assert.NotNil(t, validateCmd.RunE)
	assert.NotNil(t, validateCmd.Flags().Lookup("skip-connect"))
}

func setSkipConnect(t *testing.T, v bool) {
	t.Helper()
	original := validateSkipConnect
	validateSkipConnect = v
	t.Cleanup(func() { validateSkipConnect = original })
}

func TestRunValidate_SkipConnect(t *testing.T) {
	cfg := testConfig("srv01", "srv02")
	cfg.Objects.Tables = []string{"Orders", "Customers"}
	writeConfig(t, cfg)
	setSkipConnect(t, true)

	var buf bytes.Buffer
	validateCmd.SetOut(&buf)
	defer validateCmd.SetOut(nil)

	require.NoError(t, runValidate(validateCmd, []string{}))

	output := buf.String()
	assert.Contains(t, output, "=== Configuration Validation ===")
	assert.Contains(t, output, "Base: base01/Sales")
	assert.Contains(t, output, "Targets: 2")
	assert.Contains(t, output, "Table names: 2")
	assert.Contains(t, output, "View names: none")
	assert.Contains(t, output, "connectivity not checked")
}

func TestRunValidate_MissingObjectSheet(t *testing.T) {
	cfg := testConfig("srv01")
	cfg.Objects.ViewsFile = filepath.Join(t.TempDir(), "missing.csv")
	writeConfig(t, cfg)
	setSkipConnect(t, true)

	var buf bytes.Buffer
	validateCmd.SetOut(&buf)
	defer validateCmd.SetOut(nil)

	require.NoError(t, runValidate(validateCmd, []string{}))
	assert.Contains(t, buf.String(), "❌ View names:")
}

func TestRunValidate_Connectivity(t *testing.T) {
	writeConfig(t, testConfig("srv01", "srv02"))
	setSkipConnect(t, false)

	fc := newFakeConnector()
	fc.add(t, "base01")
	fc.add(t, "srv01")
	fc.fail("srv02", errors.New("login failed for user 'sa'"))
	useConnector(t, fc)

	var buf bytes.Buffer
	validateCmd.SetOut(&buf)
	defer validateCmd.SetOut(nil)

	err := runValidate(validateCmd, []string{})
	require.Error(t, err)

	output := buf.String()
	assert.Contains(t, output, "✅ base base01/Sales")
	assert.Contains(t, output, "✅ target srv01/Sales")
	assert.Contains(t, output, "❌ target srv02/Sales: login failed for user 'sa'")
}

func TestRunValidate_AccountsSheet(t *testing.T) {
	sheet := filepath.Join(t.TempDir(), "accounts.csv")
	content := "server,database,username,password\nbase01,Sales,sa,secret\nsrv01,Sales,sa,secret\n"
	require.NoError(t, os.WriteFile(sheet, []byte(content), 0644))

	cfg := testConfig()
	cfg.AccountsFile = sheet
	writeConfig(t, cfg)
	setSkipConnect(t, false)

	fc := newFakeConnector()
	fc.add(t, "base01")
	fc.add(t, "srv01")
	useConnector(t, fc)

	var buf bytes.Buffer
	validateCmd.SetOut(&buf)
	defer validateCmd.SetOut(nil)

	require.NoError(t, runValidate(validateCmd, []string{}))
	assert.Contains(t, buf.String(), "Targets: 1")
	assert.Contains(t, buf.String(), "✅ All databases reachable")
}
