package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const configYAML = `
defaults:
  subscription: file-sub
  resource_group: rg-from-file
arm:
  api_versions:
    - type: Microsoft.Network
      version: "2023-09-01"
    - type: Microsoft.Network/virtualNetworks/subnets
      version: "2023-05-01"
logging:
  level: info
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	return file
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, defaultEndpoint, cfg.ARM.Endpoint)
	require.Equal(t, defaultAPIVersion, cfg.ARM.APIVersion)
	require.Empty(t, cfg.ARM.APIVersions)
	require.Empty(t, cfg.Defaults.Subscription)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ARMEDIT__DEFAULTS__RESOURCE_GROUP", "rg-from-env")
	t.Setenv("ARMEDIT__LOGGING__LEVEL", "error")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("subscription", "", "")
	flags.String("store", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "debug", "--subscription", "flag-sub"}))

	cfg, err := Load(writeConfig(t, configYAML), flags)
	require.NoError(t, err)

	require.Equal(t, "flag-sub", cfg.Defaults.Subscription)
	require.Equal(t, "rg-from-env", cfg.Defaults.ResourceGroup)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
	require.Equal(t, defaultEndpoint, cfg.ARM.Endpoint)
	require.Empty(t, cfg.Store.Path)
	require.Equal(t, map[string]string{
		"microsoft.network":                         "2023-09-01",
		"microsoft.network/virtualnetworks/subnets": "2023-05-01",
	}, cfg.ARM.Versions())
}

func TestLoadUsesHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".armedit"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".armedit", "config.yaml"), []byte(configYAML), 0644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, "file-sub", cfg.Defaults.Subscription)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.ErrorContains(t, err, "config file not found")
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	file := writeConfig(t, `
arm:
  endpoint: not a url
  api_versions:
    - type: Microsoft.Network
logging:
  format: xml
`)
	_, err := Load(file, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "arm.endpoint: failed on url")
	require.Contains(t, err.Error(), "arm.api_versions[0].version: failed on required")
	require.Contains(t, err.Error(), "logging.format: failed on oneof")
}

func TestDumpYAML(t *testing.T) {
	loader := NewLoader(EnvPrefix)
	require.NoError(t, loader.LoadWithDefaults(Defaults(), ""))
	require.NoError(t, loader.Set("store.path", "/tmp/store.yaml"))

	var buf bytes.Buffer
	require.NoError(t, loader.DumpYAML(&buf))
	require.Contains(t, buf.String(), "path: /tmp/store.yaml")
	require.Contains(t, buf.String(), "endpoint: https://management.azure.com")
}
