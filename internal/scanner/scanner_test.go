package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/gorsx/internal/errors"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestHash(t *testing.T) {
	assert.Equal(t, "00000000", Hash(nil))
	assert.Len(t, Hash([]byte("<p/>")), 8)
	assert.Equal(t, Hash([]byte("a")), Hash([]byte("a")))
	assert.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"home.rsx":               "<p/>",
		"card.rsx":               "<p/>",
		"notes.txt":              "x",
		"layouts/base.rsx":       "<p/>",
		"layouts/base_test.rsx":  "<p/>",
		".cache/hidden.rsx":      "<p/>",
		"node_modules/pkg/x.rsx": "<p/>",
	})

	s := NewComponentScanner([]string{"*_test.rsx", "node_modules"})
	files, err := s.Find([]string{dir, filepath.Join(dir, "home.rsx")})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "card.rsx"),
		filepath.Join(dir, "home.rsx"),
		filepath.Join(dir, "layouts", "base.rsx"),
	}, files)
}

func TestFind_MissingDirectory(t *testing.T) {
	s := NewComponentScanner(nil)

	_, err := s.Find([]string{filepath.Join(t.TempDir(), "missing")})

	require.Error(t, err)
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodeFileNotFound))
}

func TestExcluded(t *testing.T) {
	s := NewComponentScanner([]string{"*.draft.rsx", "vendor", "build/*"})

	assert.True(t, s.Excluded("a/b/x.draft.rsx"))
	assert.True(t, s.Excluded("vendor"))
	assert.True(t, s.Excluded("vendor/lib/card.rsx"))
	assert.True(t, s.Excluded("build/out.rsx"))
	assert.False(t, s.Excluded("views/card.rsx"))
}

func TestScanFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"card.rsx": "<div>card</div>"})

	s := NewComponentScanner(nil)
	src, err := s.ScanFile(filepath.Join(dir, "card.rsx"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "card.rsx"), src.Path)
	assert.Equal(t, "<div>card</div>", string(src.Content))

	_, err = s.ScanFile(filepath.Join(dir, "nope.rsx"))
	require.Error(t, err)
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodeFileNotFound))
}

func TestScan_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.rsx": "<a/>",
		"b.rsx": "<b/>",
	})
	s := NewComponentScanner(nil)
	ctx := context.Background()

	first, err := s.Scan(ctx, []string{dir})
	require.NoError(t, err)
	assert.Len(t, first.Sources, 2)
	assert.Equal(t, []string{filepath.Join(dir, "a.rsx"), filepath.Join(dir, "b.rsx")}, first.Added)
	assert.True(t, first.Dirty())

	again, err := s.Scan(ctx, []string{dir})
	require.NoError(t, err)
	assert.False(t, again.Dirty())

	writeFiles(t, dir, map[string]string{"a.rsx": "<a>changed</a>", "c.rsx": "<c/>"})
	require.NoError(t, os.Remove(filepath.Join(dir, "b.rsx")))

	third, err := s.Scan(ctx, []string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "c.rsx")}, third.Added)
	assert.Equal(t, []string{filepath.Join(dir, "a.rsx")}, third.Changed)
	assert.Equal(t, []string{filepath.Join(dir, "b.rsx")}, third.Removed)

	s.Forget()
	fresh, err := s.Scan(ctx, []string{dir})
	require.NoError(t, err)
	assert.Len(t, fresh.Added, 2)
}

func TestScan_ManyFilesKeepOrder(t *testing.T) {
	dir := t.TempDir()
	files := make(map[string]string)
	for i := range 40 {
		files[fmt.Sprintf("c%02d.rsx", i)] = fmt.Sprintf("<p>%d</p>", i)
	}
	writeFiles(t, dir, files)

	res, err := NewComponentScanner(nil).Scan(context.Background(), []string{dir})
	require.NoError(t, err)

	require.Len(t, res.Sources, 40)
	for i, src := range res.Sources {
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("c%02d.rsx", i)), src.Path)
		assert.Equal(t, fmt.Sprintf("<p>%d</p>", i), string(src.Content))
	}
}

func TestScan_Canceled(t *testing.T) {
	dir := t.TempDir()
	files := make(map[string]string)
	for i := range 20 {
		files[fmt.Sprintf("c%02d.rsx", i)] = "<p/>"
	}
	writeFiles(t, dir, files)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewComponentScanner(nil).Scan(ctx, []string{dir})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExistingPaths(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing")

	existing, absent := ExistingPaths([]string{dir, missing})

	assert.Equal(t, []string{dir}, existing)
	assert.Equal(t, []string{missing}, absent)
}
