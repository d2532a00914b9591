package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "answer.md")

	rec, err := File{}.Write(context.Background(), path, "42", false)
	require.NoError(t, err)
	assert.Equal(t, path, rec.Path)
	assert.Equal(t, 2, rec.Bytes)

	_, err = File{}.Write(context.Background(), path, "43", false)
	assert.ErrorIs(t, err, ErrExists)

	rec, err = File{}.Write(context.Background(), path, "answer", true)
	require.NoError(t, err)
	assert.Equal(t, 6, rec.Bytes)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "answer", string(b))
}
