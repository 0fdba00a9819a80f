package matrixio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMatrix_ParsesWhitespaceDelimited(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "design.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 0\n1 1\n# comment\n1 2\n"), 0o644))

	m, err := ReadMatrix(path)
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 2.0, m.At(2, 1))
}

func TestReadMatrix_RaggedRowIsParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 0\n1\n"), 0o644))

	_, err := ReadMatrix(path)
	assert.Error(t, err)
}

func TestReadInputList_ResolvesRelativeToListDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subjects.txt")
	require.NoError(t, os.WriteFile(path, []byte("sub1.msf\nsub2.msf\n"), 0o644))

	paths, err := ReadInputList(path)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "sub1.msf"), paths[0])
}
