package fileops

import (
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcptoolbox/internal/model"
)

func TestReplaceInFile(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		pattern     string
		replacement string
		count       int
		want        string
		wantN       int
	}{
		{name: "all", content: "a1 b2 c3", pattern: `\d`, replacement: "#", want: "a# b# c#", wantN: 3},
		{name: "limited", content: "a1 b2 c3", pattern: `\d`, replacement: "#", count: 2, want: "a# b# c3", wantN: 2},
		{name: "backslash group", content: "john smith", pattern: `(\w+) (\w+)`, replacement: `\2 \1`, want: "smith john", wantN: 1},
		{name: "named group", content: "k=v", pattern: `(?P<key>\w)=(?P<val>\w)`, replacement: `\g<val>=\g<key>`, want: "v=k", wantN: 1},
		{name: "go syntax", content: "k=v", pattern: `(\w)=(\w)`, replacement: `${2}=$1`, want: "v=k", wantN: 1},
		{name: "literal dollar", content: "cost 5", pattern: `\d`, replacement: "$", want: "cost $", wantN: 1},
		{name: "no match", content: "abc", pattern: `z`, replacement: "y", want: "abc", wantN: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTemp(t, "f.txt", []byte(tc.content))

			res, err := ReplaceInFile(ReplaceRequest{
				Path:        path,
				Pattern:     tc.pattern,
				Replacement: tc.replacement,
				Count:       tc.count,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantN, res.Replacements)

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestReplaceInFile_Failures(t *testing.T) {
	path := writeTemp(t, "f.txt", []byte("abc"))

	_, err := ReplaceInFile(ReplaceRequest{Path: path, Pattern: "(", Replacement: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid regular expression: ")
	assert.Equal(t, model.KindInvalidParameter, model.KindOf(err))

	binary := writeTemp(t, "bin.dat", []byte{0xff, 0xfe, 0x00})
	_, err = ReplaceInFile(ReplaceRequest{Path: binary, Pattern: "a", Replacement: "b"})
	require.Error(t, err)
	assert.Equal(t, "Failed to decode file with encoding utf-8. Try a different encoding.", err.Error())
	assert.Equal(t, model.KindDecodeFailure, model.KindOf(err))

	_, err = ReplaceInFile(ReplaceRequest{Path: path + ".missing", Pattern: "a", Replacement: "b"})
	require.Error(t, err)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))

	fields := model.FromError(err, map[string]any{"replacements": 0}).Fields()
	assert.Equal(t, 0, fields["replacements"])
	assert.Equal(t, false, fields["success"])
}

func TestTranslateReplacement(t *testing.T) {
	re := regexp.MustCompile(`(?P<word>\w+)`)
	cases := map[string]string{
		`\1-\g<word>`: "${1}-${word}",
		`\g<1>`:       "${1}",
		"${word}":     "${word}",
		"$$":          "$$",
		"$ off":       "$$ off",
		`a\nb`:        "a\nb",
	}
	for repl, want := range cases {
		got, err := translateReplacement(repl, re)
		require.NoError(t, err, repl)
		assert.Equal(t, want, got, repl)
	}
}

func TestTranslateReplacement_UnknownGroups(t *testing.T) {
	re := regexp.MustCompile(`(?P<word>\w+)`)
	for repl, want := range map[string]string{
		`\2`:          "invalid group reference 2",
		`x\12`:        "invalid group reference 12",
		`\g<3>`:       "invalid group reference 3",
		`\g<missing>`: "unknown group name 'missing'",
		`\g<>`:        "missing group name",
	} {
		_, err := translateReplacement(repl, re)
		require.Error(t, err, repl)
		assert.Equal(t, want, err.Error(), repl)
	}
}

func TestReplaceInFile_InvalidGroupReferenceLeavesFileAlone(t *testing.T) {
	path := writeTemp(t, "f.txt", []byte("alpha beta"))

	_, err := ReplaceInFile(ReplaceRequest{Path: path, Pattern: `(\w+)`, Replacement: `<\2>`})
	require.Error(t, err)
	assert.Equal(t, model.KindInvalidParameter, model.KindOf(err))
	assert.Equal(t, "Invalid replacement: invalid group reference 2", err.Error())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha beta", string(data))
}
