package fs

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavel-fokin/pdf-toolbox/internal/files"
)

func TestWriteOpenDelete(t *testing.T) {
	s := NewStorage(afero.NewMemMapFs(), "/data")

	n, err := s.Write("blob-1", strings.NewReader("content"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.True(t, s.Exists("blob-1"))

	rc, err := s.Open("blob-1")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "content", string(data))

	require.NoError(t, s.Delete("blob-1"))
	assert.False(t, s.Exists("blob-1"))

	t.Run("delete missing is success", func(t *testing.T) {
		assert.NoError(t, s.Delete("blob-1"))
	})

	t.Run("open missing", func(t *testing.T) {
		_, err := s.Open("blob-1")
		assert.ErrorIs(t, err, files.ErrBlobMissing)
	})
}

func TestWriteRefusesExisting(t *testing.T) {
	s := NewStorage(afero.NewMemMapFs(), "/data")

	_, err := s.Write("blob", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = s.Write("blob", strings.NewReader("b"))
	assert.Error(t, err)
}

func TestInvalidNames(t *testing.T) {
	s := NewStorage(afero.NewMemMapFs(), "/data")

	for _, name := range []string{"", ".", "..", "../escape", "a/b", `a\b`} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Write(name, strings.NewReader("x"))
			assert.Error(t, err)
			_, err = s.Open(name)
			assert.Error(t, err)
			assert.Error(t, s.Delete(name))
			assert.False(t, s.Exists(name))
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestWriteRemovesPartialFile(t *testing.T) {
	s := NewStorage(afero.NewMemMapFs(), "/data")

	_, err := s.Write("partial", io.MultiReader(strings.NewReader("half"), failingReader{}))
	assert.Error(t, err)
	assert.False(t, s.Exists("partial"))
}

func TestDeleteReadOnly(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/data/blob", []byte("x"), 0o644))

	s := NewStorage(afero.NewReadOnlyFs(mem), "/data")
	err := s.Delete("blob")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestList(t *testing.T) {
	mem := afero.NewMemMapFs()
	s := NewStorage(mem, "/data")

	t.Run("missing directory", func(t *testing.T) {
		blobs, err := s.List()
		require.NoError(t, err)
		assert.Empty(t, blobs)
	})

	_, err := s.Write("a", strings.NewReader("aa"))
	require.NoError(t, err)
	_, err = s.Write("b", strings.NewReader("b"))
	require.NoError(t, err)
	require.NoError(t, mem.MkdirAll("/data/sub", 0o755))

	blobs, err := s.List()
	require.NoError(t, err)
	require.Len(t, blobs, 2)

	sizes := map[string]int64{}
	for _, b := range blobs {
		sizes[b.Name] = b.Size
	}
	assert.Equal(t, map[string]int64{"a": 2, "b": 1}, sizes)
}
