package fileops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"utf-8", "UTF8", "", "latin_1", "iso-8859-1", "windows-1252", "cp1252", "shift_jis", "utf_16"} {
		enc, err := LookupEncoding(name)
		require.NoError(t, err, name)
		require.NotNil(t, enc, name)
	}

	_, err := LookupEncoding("klingon")
	assert.ErrorIs(t, err, errUnknownEncoding)
}

func TestDecodeStrict(t *testing.T) {
	utf8Enc, err := LookupEncoding("utf-8")
	require.NoError(t, err)

	_, err = decodeStrict(utf8Enc, []byte{'a', 0xff})
	assert.Error(t, err)

	text, err := decodeStrict(utf8Enc, []byte("héllo"))
	require.NoError(t, err)
	assert.Equal(t, "héllo", text)
}

func TestEncodeStrictRejectsUnrepresentableRunes(t *testing.T) {
	latin1, err := LookupEncoding("latin-1")
	require.NoError(t, err)

	out, err := encodeStrict(latin1, "café")
	require.NoError(t, err)
	assert.Equal(t, []byte("caf\xe9"), out)

	_, err = encodeStrict(latin1, "日本")
	assert.Error(t, err)
}
