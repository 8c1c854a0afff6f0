package fileops

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcptoolbox/internal/model"
)

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("bb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("h"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.txt"), make([]byte, 2048), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deep", "d.txt"), []byte("d"), 0o644))
	return root
}

func entryNames(entries []Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func TestListDirectory_Flat(t *testing.T) {
	root := buildTree(t)

	listing, err := ListDirectory(ListRequest{Path: root, MaxDepth: -1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "sub"}, entryNames(listing.Entries))

	sub := listing.Entries[2]
	assert.Equal(t, EntryTypeDirectory, sub.Type)
	assert.Equal(t, byte('d'), FormatMode(sub.Mode)[0])

	file := listing.Entries[1]
	assert.Equal(t, EntryTypeFile, file.Type)
	assert.Equal(t, int64(2), file.Size)
	assert.Equal(t, "-rw-r--r--", FormatMode(file.Mode)[:10])
	assert.Equal(t, 0, file.Depth)
}

func TestListDirectory_RecursiveHiddenAndDepth(t *testing.T) {
	root := buildTree(t)

	listing, err := ListDirectory(ListRequest{Path: root, Recursive: true, MaxDepth: -1, IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, []string{".hidden", "a.txt", "b.txt", "sub", "c.txt", "deep", "d.txt"}, entryNames(listing.Entries))
	assert.Equal(t, 2, listing.Entries[6].Depth)

	limited, err := ListDirectory(ListRequest{Path: root, Recursive: true, MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "sub", "c.txt", "deep"}, entryNames(limited.Entries))

	fields := limited.Fields()
	assert.Equal(t, 5, fields["count"])
}

func TestListDirectory_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := buildTree(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "sub"), filepath.Join(root, "link")))

	listing, err := ListDirectory(ListRequest{Path: root, Recursive: true, MaxDepth: -1})
	require.NoError(t, err)

	var link *Entry
	for i := range listing.Entries {
		if listing.Entries[i].Name == "link" {
			link = &listing.Entries[i]
		}
	}
	require.NotNil(t, link)
	assert.Equal(t, EntryTypeSymlink, link.Type)
	assert.Equal(t, byte('l'), FormatMode(link.Mode)[0])
}

func TestListDirectory_PermissionDeniedEntry(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := buildTree(t)
	locked := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	listing, err := ListDirectory(ListRequest{Path: root, Recursive: true, MaxDepth: -1})
	require.NoError(t, err)

	var denied []Entry
	for _, e := range listing.Entries {
		if e.Error != "" {
			denied = append(denied, e)
		}
	}
	require.Len(t, denied, 1)
	assert.Equal(t, "Permission denied", denied[0].Error)
	assert.Equal(t, locked, denied[0].Path)
	assert.Equal(t, 2, denied[0].Depth)
	assert.NotContains(t, denied[0].Fields(), "size")
}

func TestListDirectory_PathErrors(t *testing.T) {
	root := buildTree(t)

	_, err := ListDirectory(ListRequest{Path: filepath.Join(root, "nope")})
	require.Error(t, err)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))

	_, err = ListDirectory(ListRequest{Path: filepath.Join(root, "a.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Path is not a directory: ")
	assert.Equal(t, model.KindWrongType, model.KindOf(err))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "12 bytes", FormatSize(12))
	assert.Equal(t, "1.00 KB", FormatSize(1024))
	assert.Equal(t, "1.50 MB", FormatSize(1024*1024*3/2))
	assert.Equal(t, "2.00 GB", FormatSize(2<<30))
}

func TestFormatMode(t *testing.T) {
	assert.Equal(t, "drwxr-xr-x", FormatMode(0o040755))
	assert.Equal(t, "-rw-------", FormatMode(0o100600))
	assert.Equal(t, "lrwxrwxrwx", FormatMode(0o120777))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y"), ExpandPath("~/x/y"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/abs/~x", ExpandPath("/abs/~x"))
}
