package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mcptoolbox/internal/model"
)

const (
	EntryTypeFile      = "file"
	EntryTypeDirectory = "directory"
	EntryTypeSymlink   = "symlink"
)

// ListRequest describes a list_directory call. A negative MaxDepth means no
// depth limit.
type ListRequest struct {
	Path          string
	Recursive     bool
	MaxDepth      int
	IncludeHidden bool
}

// Entry describes one item of a listing. Entries for unreadable directories
// only carry Name, Path, Type, Error and Depth.
type Entry struct {
	Name     string
	Path     string
	Type     string
	Size     int64
	Mode     uint32
	Owner    int64
	Group    int64
	Created  time.Time
	Modified time.Time
	Accessed time.Time
	Depth    int
	Error    string
}

func (e Entry) Fields() map[string]any {
	if e.Error != "" {
		return map[string]any{
			"name":  e.Name,
			"path":  e.Path,
			"type":  e.Type,
			"error": e.Error,
			"depth": e.Depth,
		}
	}
	return map[string]any{
		"name":           e.Name,
		"path":           e.Path,
		"type":           e.Type,
		"size":           e.Size,
		"size_formatted": FormatSize(e.Size),
		"permissions":    FormatMode(e.Mode),
		"mode":           e.Mode,
		"owner":          e.Owner,
		"group":          e.Group,
		"created":        e.Created.Format(time.RFC3339),
		"modified":       e.Modified.Format(time.RFC3339),
		"accessed":       e.Accessed.Format(time.RFC3339),
		"depth":          e.Depth,
	}
}

type Listing struct {
	Path    string
	Entries []Entry
}

func (l *Listing) Fields() map[string]any {
	entries := make([]map[string]any, 0, len(l.Entries))
	for _, e := range l.Entries {
		entries = append(entries, e.Fields())
	}
	return map[string]any{
		"path":    l.Path,
		"entries": entries,
		"count":   len(entries),
	}
}

// ListDirectory lists req.Path in name order. Recursive listings are depth
// first. A subdirectory that cannot be read is reported as an entry with
// Error "Permission denied" and the walk continues.
func ListDirectory(req ListRequest) (*Listing, error) {
	root := ExpandPath(req.Path)
	fail := func(err error) error {
		return &model.ToolError{Kind: model.KindOf(err), Message: "Failed to list directory: " + err.Error(), Cause: err}
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.NewToolError(model.KindNotFound, "Directory not found: "+req.Path, err)
		}
		return nil, fail(err)
	}
	if !info.IsDir() {
		return nil, model.NewToolError(model.KindWrongType, "Path is not a directory: "+req.Path, nil)
	}

	w := &walker{req: req}
	if err := w.walk(root, 0); err != nil {
		return nil, fail(err)
	}
	return &Listing{Path: root, Entries: w.entries}, nil
}

type walker struct {
	req     ListRequest
	entries []Entry
}

func (w *walker) walk(dir string, depth int) error {
	if w.req.MaxDepth >= 0 && depth > w.req.MaxDepth {
		return nil
	}
	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			w.entries = append(w.entries, Entry{
				Name:  filepath.Base(dir),
				Path:  dir,
				Type:  EntryTypeDirectory,
				Error: "Permission denied",
				Depth: depth,
			})
			return nil
		}
		return err
	}

	for _, item := range items {
		if !w.req.IncludeHidden && strings.HasPrefix(item.Name(), ".") {
			continue
		}
		info, err := item.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// removed while listing
				continue
			}
			return fmt.Errorf("stat %s: %w", item.Name(), err)
		}
		path := filepath.Join(dir, item.Name())
		entry := newEntry(path, info)
		entry.Depth = depth
		w.entries = append(w.entries, entry)

		if w.req.Recursive && entry.Type == EntryTypeDirectory {
			if err := w.walk(path, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func newEntry(path string, info os.FileInfo) Entry {
	entry := Entry{
		Name:     info.Name(),
		Path:     path,
		Type:     entryType(info.Mode()),
		Size:     info.Size(),
		Mode:     posixMode(info.Mode()),
		Modified: info.ModTime(),
		Created:  info.ModTime(),
		Accessed: info.ModTime(),
	}
	fillPlatformStat(&entry, info)
	return entry
}

func entryType(mode fs.FileMode) string {
	switch {
	case mode&fs.ModeSymlink != 0:
		return EntryTypeSymlink
	case mode.IsDir():
		return EntryTypeDirectory
	default:
		return EntryTypeFile
	}
}

// POSIX st_mode type bits.
const (
	modeTypeFIFO   = 0o010000
	modeTypeChar   = 0o020000
	modeTypeDir    = 0o040000
	modeTypeBlock  = 0o060000
	modeTypeFile   = 0o100000
	modeTypeLink   = 0o120000
	modeTypeSocket = 0o140000
)

// posixMode converts an fs.FileMode into a POSIX st_mode value.
func posixMode(mode fs.FileMode) uint32 {
	out := uint32(mode.Perm())
	if mode&fs.ModeSetuid != 0 {
		out |= 0o4000
	}
	if mode&fs.ModeSetgid != 0 {
		out |= 0o2000
	}
	if mode&fs.ModeSticky != 0 {
		out |= 0o1000
	}
	switch {
	case mode&fs.ModeSymlink != 0:
		out |= modeTypeLink
	case mode.IsDir():
		out |= modeTypeDir
	case mode&fs.ModeNamedPipe != 0:
		out |= modeTypeFIFO
	case mode&fs.ModeSocket != 0:
		out |= modeTypeSocket
	case mode&fs.ModeCharDevice != 0:
		out |= modeTypeChar
	case mode&fs.ModeDevice != 0:
		out |= modeTypeBlock
	default:
		out |= modeTypeFile
	}
	return out
}

// FormatMode renders a POSIX st_mode as "drwxr-xr-x".
func FormatMode(mode uint32) string {
	var b strings.Builder
	switch mode & 0o170000 {
	case modeTypeDir:
		b.WriteByte('d')
	case modeTypeLink:
		b.WriteByte('l')
	default:
		b.WriteByte('-')
	}
	const rwx = "rwx"
	for i := 8; i >= 0; i-- {
		if mode&(1<<uint(i)) != 0 {
			b.WriteByte(rwx[(8-i)%3])
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// FormatSize renders a byte count as "N bytes" or a two-decimal KB, MB or GB
// figure.
func FormatSize(size int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case size >= gb:
		return fmt.Sprintf("%.2f GB", float64(size)/gb)
	case size >= mb:
		return fmt.Sprintf("%.2f MB", float64(size)/mb)
	case size >= kb:
		return fmt.Sprintf("%.2f KB", float64(size)/kb)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
