package sink

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFilesystem_PutGetList covers the basic flow, including overwrite.
func TestFilesystem_PutGetList(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	s, err := NewFilesystem(root)
	require.NoError(t, err)
	ctx := context.Background()

	info, err := s.Put(ctx, "a_0.raw", bytes.NewReader([]byte{1, 2, 3}), PutOptions{ContentType: "application/octet-stream"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)
	assert.Len(t, info.ETag, 64)

	_, err = s.Put(ctx, "nested/b.yaml", bytes.NewReader([]byte("k: v\n")), PutOptions{})
	require.NoError(t, err)

	// Overwrite replaces the content.
	_, err = s.Put(ctx, "a_0.raw", bytes.NewReader([]byte{9}), PutOptions{})
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, "a_0.raw"))
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, data)

	head, err := s.Head(ctx, "nested/b.yaml")
	require.NoError(t, err)
	assert.Equal(t, int64(5), head.Size)

	_, rc, err := s.Get(ctx, "nested/b.yaml")
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "k: v\n", string(got))

	list, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a_0.raw", list[0].Key)
	assert.Equal(t, "nested/b.yaml", list[1].Key)

	list, err = s.List(ctx, "nested/")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Equal(t, filepath.Join(root, "a_0.raw"), s.Location("a_0.raw"))
	assert.Equal(t, DriverFilesystem, s.Driver())
}

// TestFilesystem_NotFound verifies the sentinel on missing keys.
func TestFilesystem_NotFound(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	_, err = s.Head(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestSanitizeKey rejects keys that would escape the root.
func TestSanitizeKey(t *testing.T) {
	for _, bad := range []string{"", "  ", "/etc/passwd", "../x", "a/../../x"} {
		_, err := sanitizeKey(bad)
		assert.Error(t, err, "key %q", bad)
	}
	for _, good := range []string{"a.raw", "dir/a.raw", "a..b.raw"} {
		_, err := sanitizeKey(good)
		assert.NoError(t, err, "key %q", good)
	}

	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "../escape", bytes.NewReader(nil), PutOptions{})
	assert.Error(t, err)
}
