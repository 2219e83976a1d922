package decompress

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBytes(t *testing.T, parts ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, p := range parts {
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(p))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	}
	return buf.Bytes()
}

func TestGunzip(t *testing.T) {
	xmlDoc := `<?xml version="1.0"?><urlset/>`

	t.Run("正常系", func(t *testing.T) {
		out, err := Gunzip(gzipBytes(t, xmlDoc))
		require.NoError(t, err)
		assert.Equal(t, xmlDoc, string(out))
	})

	t.Run("複数メンバー", func(t *testing.T) {
		out, err := Gunzip(gzipBytes(t, "<a>", "</a>"))
		require.NoError(t, err)
		assert.Equal(t, "<a></a>", string(out))
	})

	t.Run("空の圧縮データ", func(t *testing.T) {
		out, err := Gunzip(gzipBytes(t, ""))
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestGunzip_Errors(t *testing.T) {
	valid := gzipBytes(t, strings.Repeat("<url><loc>https://a.example/</loc></url>", 50))

	corrupted := append([]byte(nil), valid...)
	// CRC32 フィールドを壊す
	corrupted[len(corrupted)-6] ^= 0xff

	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"空の入力", nil, ErrEmptyInput},
		{"gzipではない", []byte("<?xml version=\"1.0\"?><urlset/>"), gzip.ErrHeader},
		{"途中で切れている", valid[:len(valid)/2], io.ErrUnexpectedEOF},
		{"チェックサム不一致", corrupted, gzip.ErrChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Gunzip(tt.input)
			require.Error(t, err)
			assert.Nil(t, out)

			var de *DecompressError
			require.True(t, errors.As(err, &de))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGunzipLimit(t *testing.T) {
	data := gzipBytes(t, strings.Repeat("x", 100))

	_, err := GunzipLimit(data, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)

	out, err := GunzipLimit(data, 100)
	require.NoError(t, err)
	assert.Len(t, out, 100)
}
