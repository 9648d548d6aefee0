package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".sqlaudit.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_errors = 25
output_format = "json"
fail_on = "warning"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.MaxErrors)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "warning", cfg.FailOn)
	assert.Equal(t, "mysql", cfg.Dialect, "unset fields keep their default")
}

func TestMerge_FlagsOutrankFileAndDefaults(t *testing.T) {
	base := Default()
	base.OutputFormat = "json"

	maxErrors := 5
	merged := Merge(base, Overrides{
		FailOn:    "warning",
		MaxErrors: &maxErrors,
	})

	assert.Equal(t, "warning", merged.FailOn)
	assert.Equal(t, 5, merged.MaxErrors)
	assert.Equal(t, "json", merged.OutputFormat, "unset override leaves file value intact")
}

func TestValidate_RejectsUnknownOutputFormat(t *testing.T) {
	cfg := Default()
	cfg.OutputFormat = "xml"
	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidate_RejectsNegativeMaxErrors(t *testing.T) {
	cfg := Default()
	cfg.MaxErrors = -1
	require.Error(t, Validate(cfg))
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestDisabledSet_BuildsFromStrings(t *testing.T) {
	cfg := Default()
	cfg.DisabledRules = []string{"E0006"}
	set := DisabledSet(cfg)
	assert.True(t, set.Disabled("E0006"))
	assert.False(t, set.Disabled("E0001"))
}

func TestDisabledSet_EmptyIsNil(t *testing.T) {
	assert.Nil(t, DisabledSet(Default()))
}
