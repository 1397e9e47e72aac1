package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"relative", ".zeroledger", filepath.Join(root, ".zeroledger")},
		{"nested relative", filepath.Join("data", "journal"), filepath.Join(root, "data", "journal")},
		{"absolute", filepath.Join(root, "abs", "dir"), filepath.Join(root, "abs", "dir")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EnsureDir(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := EnsureDir(tt.in)
			require.NoError(t, err)
			assert.Equal(t, got, again)

			fi, err := os.Stat(got)
			require.NoError(t, err)
			assert.True(t, fi.IsDir())
			if runtime.GOOS != "windows" {
				assert.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
			}
		})
	}
}

func TestEnsureDir_PathIsAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := EnsureDir(path)
	assert.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "agent.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"version":1}`), 0o600))
	require.NoError(t, WriteFileAtomic(path, []byte(`{"version":2}`), 0o600))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2}`, string(b))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}
}
