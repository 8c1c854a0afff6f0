package fileops

import (
	"bytes"
	"encoding/base64"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcptoolbox/internal/model"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadChunk_CoversWholeFile(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 97)
	path := writeTemp(t, "data.txt", data)

	for _, chunkSize := range []int64{1, 7, 100, 970, 971, 5000} {
		first, err := ReadChunk(ChunkRequest{Path: path, ChunkSize: chunkSize})
		require.NoError(t, err)
		want := (int64(len(data)) + chunkSize - 1) / chunkSize
		require.Equal(t, want, first.TotalChunks, "chunk size %d", chunkSize)

		var sum int64
		var joined strings.Builder
		for i := int64(0); i < first.TotalChunks; i++ {
			c, err := ReadChunk(ChunkRequest{Path: path, ChunkSize: chunkSize, ChunkIndex: i})
			require.NoError(t, err)
			assert.Equal(t, i == first.TotalChunks-1, c.IsLastChunk)
			sum += c.ChunkActualSize
			joined.WriteString(c.Content)
		}
		assert.Equal(t, int64(len(data)), sum)
		assert.Equal(t, string(data), joined.String())
	}
}

func TestReadChunk_OneAndAHalfMegabytes(t *testing.T) {
	path := writeTemp(t, "big.txt", bytes.Repeat([]byte("a"), 1_500_000))

	c0, err := ReadChunk(ChunkRequest{Path: path, ChunkSize: DefaultChunkSize})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), c0.ChunkActualSize)
	assert.Len(t, c0.Content, 1_000_000)
	assert.False(t, c0.IsLastChunk)
	assert.Equal(t, int64(2), c0.TotalChunks)

	c1, err := ReadChunk(ChunkRequest{Path: path, ChunkSize: DefaultChunkSize, ChunkIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), c1.ChunkActualSize)
	assert.True(t, c1.IsLastChunk)

	_, err = ReadChunk(ChunkRequest{Path: path, ChunkSize: DefaultChunkSize, ChunkIndex: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 to 1")

	var rangeErr *ChunkRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, int64(2), rangeErr.TotalChunks)
	assert.Equal(t, int64(1_500_000), rangeErr.FileSize)
}

func TestReadChunk_OutOfRangeRendersRangeFields(t *testing.T) {
	path := writeTemp(t, "small.txt", []byte("hello"))

	_, err := ReadChunk(ChunkRequest{Path: path, ChunkSize: 2, ChunkIndex: 3})
	require.Error(t, err)
	assert.Equal(t, "Invalid chunk index: 3. Valid range is 0 to 2", err.Error())

	fields := model.FromError(err, map[string]any{"content": ""}).Fields()
	assert.Equal(t, false, fields["success"])
	assert.Equal(t, "", fields["content"])
	assert.Equal(t, int64(3), fields["total_chunks"])
	assert.Equal(t, int64(5), fields["file_size"])
	assert.Equal(t, string(model.KindInvalidParameter), fields["error_kind"])

	_, err = ReadChunk(ChunkRequest{Path: path, ChunkSize: 2, ChunkIndex: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid chunk index: -1")
}

func TestReadChunk_EmptyFile(t *testing.T) {
	path := writeTemp(t, "empty.txt", nil)

	c, err := ReadChunk(ChunkRequest{Path: path, ChunkSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "", c.Content)
	assert.Equal(t, int64(1), c.TotalChunks)
	assert.Equal(t, int64(0), c.ChunkActualSize)
	assert.True(t, c.IsLastChunk)

	_, err = ReadChunk(ChunkRequest{Path: path, ChunkSize: 10, ChunkIndex: 1})
	require.Error(t, err)
}

func TestReadChunk_InvalidBytesAreReplaced(t *testing.T) {
	path := writeTemp(t, "bad.txt", []byte{'o', 'k', 0xff, 0xfe, '!'})

	c, err := ReadChunk(ChunkRequest{Path: path, Encoding: "utf-8", ChunkSize: 100})
	require.NoError(t, err)
	assert.Equal(t, "utf-8", c.Encoding)
	assert.True(t, strings.HasPrefix(c.Content, "ok"))
	assert.True(t, strings.HasSuffix(c.Content, "!"))
	assert.Contains(t, c.Content, "�")
}

func TestReadChunk_UnknownEncodingFallsBackToBase64(t *testing.T) {
	raw := []byte{0x00, 0x01, 0xfe, 0xff, 'x'}
	path := writeTemp(t, "blob.bin", raw)

	c, err := ReadChunk(ChunkRequest{Path: path, Encoding: "no-such-codec", ChunkSize: 100})
	require.NoError(t, err)
	assert.Equal(t, "base64 (original: no-such-codec)", c.Encoding)

	decoded, err := base64.StdEncoding.DecodeString(c.Content)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestReadChunk_SingleByteEncodingConcatenates(t *testing.T) {
	raw := []byte("caf\xe9 cr\xe8me br\xfbl\xe9e")
	path := writeTemp(t, "latin.txt", raw)

	whole, err := ReadChunk(ChunkRequest{Path: path, Encoding: "latin_1", ChunkSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, "café crème brûlée", whole.Content)

	var joined strings.Builder
	for i := int64(0); i < TotalChunks(int64(len(raw)), 3); i++ {
		c, err := ReadChunk(ChunkRequest{Path: path, Encoding: "iso-8859-1", ChunkSize: 3, ChunkIndex: i})
		require.NoError(t, err)
		joined.WriteString(c.Content)
	}
	assert.Equal(t, whole.Content, joined.String())
}

func TestReadChunk_PathErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadChunk(ChunkRequest{Path: filepath.Join(dir, "missing.txt"), ChunkSize: 10})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "File not found: "))
	assert.Equal(t, model.KindNotFound, model.KindOf(err))

	_, err = ReadChunk(ChunkRequest{Path: dir, ChunkSize: 10})
	require.Error(t, err)
	assert.Equal(t, "Path is not a file: "+dir, err.Error())
	assert.Equal(t, model.KindWrongType, model.KindOf(err))
}

func TestReadChunk_RejectsNonPositiveChunkSize(t *testing.T) {
	path := writeTemp(t, "x.txt", []byte("x"))

	_, err := ReadChunk(ChunkRequest{Path: path, ChunkSize: 0})
	require.Error(t, err)
	assert.Equal(t, model.KindInvalidParameter, model.KindOf(err))
}

func TestChunkFields(t *testing.T) {
	path := writeTemp(t, "f.txt", []byte("abcdef"))

	c, err := ReadChunk(ChunkRequest{Path: path, ChunkSize: 4, ChunkIndex: 1})
	require.NoError(t, err)

	fields := model.Ok(c.Fields()).Fields()
	assert.Equal(t, true, fields["success"])
	assert.Equal(t, "ef", fields["content"])
	assert.Equal(t, int64(6), fields["size"])
	assert.Equal(t, int64(2), fields["chunk_actual_size"])
	assert.Equal(t, true, fields["is_last_chunk"])
	assert.NotEmpty(t, fields["last_modified"])
}

func TestTotalChunks_LargeChunkSizes(t *testing.T) {
	cases := []struct {
		size, chunkSize, want int64
	}{
		{size: 0, chunkSize: math.MaxInt64, want: 1},
		{size: 1, chunkSize: math.MaxInt64, want: 1},
		{size: 2000, chunkSize: math.MaxInt64, want: 1},
		{size: 2000, chunkSize: 9223372036854774784, want: 1},
		{size: math.MaxInt64, chunkSize: math.MaxInt64, want: 1},
		{size: math.MaxInt64, chunkSize: math.MaxInt64 - 1, want: 2},
		{size: math.MaxInt64, chunkSize: 1, want: math.MaxInt64},
		{size: 10, chunkSize: 3, want: 4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TotalChunks(tc.size, tc.chunkSize), "size %d chunk %d", tc.size, tc.chunkSize)
	}
}

func TestReadChunk_ChunkSizeLargerThanAnyFile(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 2000)
	path := writeTemp(t, "big-chunk.txt", data)

	for _, chunkSize := range []int64{math.MaxInt64, 9223372036854774784} {
		c, err := ReadChunk(ChunkRequest{Path: path, ChunkSize: chunkSize})
		require.NoError(t, err, "chunk size %d", chunkSize)
		assert.Equal(t, int64(1), c.TotalChunks)
		assert.Equal(t, int64(2000), c.ChunkActualSize)
		assert.True(t, c.IsLastChunk)
		assert.Equal(t, string(data), c.Content)

		_, err = ReadChunk(ChunkRequest{Path: path, ChunkSize: chunkSize, ChunkIndex: 1})
		var rangeErr *ChunkRangeError
		require.ErrorAs(t, err, &rangeErr)
		assert.Equal(t, int64(1), rangeErr.TotalChunks)
	}
}
