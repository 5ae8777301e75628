package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathsIn(t *testing.T) {
	p := PathsIn("/tmp/fs")
	assert.Equal(t, filepath.Join("/tmp/fs", "focussplit.db"), p.DB)
	assert.Equal(t, filepath.Join("/tmp/fs", "logs"), p.Logs)
	assert.Equal(t, "/tmp/fs", filepath.Dir(p.Legacy))
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	p, err := DefaultPaths()
	require.NoError(t, err)
	assert.Equal(t, AppName, filepath.Base(p.Dir))
}
