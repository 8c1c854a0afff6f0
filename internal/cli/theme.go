package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"mcptoolbox/internal/model"
)

// largeCacheEntry is the size from which cache ls highlights an entry.
const largeCacheEntry = 10 << 20

// theme colors human-readable output. It stays plain unless the writer is a
// terminal and --json is off, so piped output carries no escape codes.
type theme struct {
	color bool
	good  lipgloss.Style
	bad   lipgloss.Style
	warn  lipgloss.Style
	label lipgloss.Style
	link  lipgloss.Style
}

func newTheme(w io.Writer, jsonMode bool) theme {
	f, ok := w.(*os.File)
	if jsonMode || !ok || !term.IsTerminal(int(f.Fd())) {
		return theme{}
	}
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return theme{
		color: true,
		good:  fg("114"),
		bad:   fg("203").Bold(true),
		warn:  fg("220").Bold(true),
		label: fg("245"),
		link:  fg("81").Underline(true),
	}
}

func (t theme) paint(st lipgloss.Style, text string) string {
	if !t.color {
		return text
	}
	return st.Render(text)
}

// callStatus renders a tool call outcome: "ok" or the failure kind.
func (t theme) callStatus(success bool, kind model.ErrorKind) string {
	if success {
		return t.paint(t.good, "ok")
	}
	return t.paint(t.bad, string(kind))
}

func (t theme) cacheSize(n int64) string {
	size := humanize.Bytes(uint64(n))
	if n >= largeCacheEntry {
		return t.paint(t.warn, size)
	}
	return size
}

// field renders one line of the serve endpoint block.
func (t theme) field(label, value string) string {
	return "  " + t.paint(t.label, fmt.Sprintf("%-9s", label+":")) + " " + value
}

func (t theme) failure() string {
	return t.paint(t.bad, "error:")
}
