package audio

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "batch.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractRecordings(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"5551234567.wav":      "one",
		"day2/5559876543.mp3": "two",
		"manifest.csv":        "ref,phone",
		"__MACOSX/readme.txt": "junk",
	})

	dest := t.TempDir()
	got, err := ExtractRecordings(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	data, err := os.ReadFile(filepath.Join(dest, "day2", "5559876543.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	_, err = os.Stat(filepath.Join(dest, "manifest.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractRecordings_ZipSlip(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{"../../evil.wav": "x"})
	_, err := ExtractRecordings(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal path")
}

func TestExtractRecordings_BadArchive(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(p, []byte("not a zip"), 0o644))
	_, err := ExtractRecordings(p, t.TempDir())
	require.Error(t, err)
}

func TestListRecordings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	for _, n := range []string{"b.wav", "a.mp3", "notes.txt", filepath.Join("sub", "c.m4a")} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}

	got, err := ListRecordings(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.mp3"),
		filepath.Join(dir, "b.wav"),
		filepath.Join(dir, "sub", "c.m4a"),
	}, got)
}
