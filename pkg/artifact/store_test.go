package artifact

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Save(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStoreWithFs(fs, "/work")

	require.NoError(t, store.SaveCompressed([]byte{0x1f, 0x8b}))
	require.NoError(t, store.SaveExtracted([]byte("<urlset/>")))
	// 上書き
	require.NoError(t, store.SaveExtracted([]byte("<urlset></urlset>")))

	gz, err := afero.ReadFile(fs, filepath.Join("/work", CompressedFileName))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, gz)

	xml, err := afero.ReadFile(fs, filepath.Join("/work", ExtractedFileName))
	require.NoError(t, err)
	assert.Equal(t, "<urlset></urlset>", string(xml))

	entries, err := afero.ReadDir(fs, "/work")
	require.NoError(t, err)
	assert.Len(t, entries, 2, "一時ファイルが残っていないこと")
}

func TestStore_ReadOnlyFs(t *testing.T) {
	store := NewStoreWithFs(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/work")
	assert.Error(t, store.SaveCompressed([]byte("x")))
}
