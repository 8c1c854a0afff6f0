package markdown

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	trailingSpacePattern = regexp.MustCompile(`[ \t]+\n`)
	multiNewlinePattern  = regexp.MustCompile(`\n{3,}`)
)

type listState struct {
	ordered bool
	index   int
}

// htmlRenderer walks a parsed document and writes Markdown. It tracks the
// tail of the output so block elements can be separated without piling up
// blank lines.
type htmlRenderer struct {
	b         strings.Builder
	lists     []listState
	pre       int
	newlines  int
	lineStart bool
	lastSpace bool
}

func htmlToMarkdown(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var rd htmlRenderer
	rd.lineStart = true
	rd.renderChildren(doc)
	return cleanMarkdown(rd.b.String()), nil
}

func cleanMarkdown(s string) string {
	s = trailingSpacePattern.ReplaceAllString(s, "\n")
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return s + "\n"
}

func (r *htmlRenderer) write(s string) {
	if s == "" {
		return
	}
	r.b.WriteString(s)
	trimmed := strings.TrimRight(s, "\n")
	trailing := len(s) - len(trimmed)
	if trimmed == "" {
		r.newlines += trailing
	} else {
		r.newlines = trailing
	}
	r.lineStart = r.newlines > 0
	r.lastSpace = strings.HasSuffix(s, " ")
}

func (r *htmlRenderer) ensureNewline() {
	if r.b.Len() == 0 || r.lineStart {
		return
	}
	r.write("\n")
}

func (r *htmlRenderer) ensureBlank() {
	if r.b.Len() == 0 {
		return
	}
	if len(r.lists) > 0 {
		r.ensureNewline()
		return
	}
	for r.newlines < 2 {
		r.write("\n")
	}
}

func (r *htmlRenderer) renderChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.render(c)
	}
}

func (r *htmlRenderer) render(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		r.text(n.Data)
		return
	case html.DocumentNode:
		r.renderChildren(n)
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head, atom.Iframe, atom.Svg:
		return
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		r.ensureBlank()
		r.write(strings.Repeat("#", level) + " ")
		r.renderChildren(n)
		r.ensureBlank()
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main, atom.Header, atom.Footer,
		atom.Nav, atom.Aside, atom.Figure, atom.Figcaption, atom.Dl, atom.Form:
		r.ensureBlank()
		r.renderChildren(n)
		r.ensureBlank()
	case atom.Dt:
		r.ensureNewline()
		r.write("**")
		r.renderChildren(n)
		r.write("**")
		r.ensureNewline()
	case atom.Dd:
		r.ensureNewline()
		r.write(": ")
		r.renderChildren(n)
		r.ensureNewline()
	case atom.Br:
		r.write("\n")
	case atom.Hr:
		r.ensureBlank()
		r.write("---")
		r.ensureBlank()
	case atom.Ul, atom.Ol:
		if len(r.lists) == 0 {
			r.ensureBlank()
		} else {
			r.ensureNewline()
		}
		r.lists = append(r.lists, listState{ordered: n.DataAtom == atom.Ol})
		r.renderChildren(n)
		r.lists = r.lists[:len(r.lists)-1]
		if len(r.lists) == 0 {
			r.ensureBlank()
		}
	case atom.Li:
		r.listItem(n)
	case atom.Pre:
		r.ensureBlank()
		r.write("```" + codeLanguage(n) + "\n")
		r.pre++
		r.renderChildren(n)
		r.pre--
		r.ensureNewline()
		r.write("```")
		r.ensureBlank()
	case atom.Code, atom.Kbd, atom.Samp, atom.Tt:
		if r.pre > 0 {
			r.renderChildren(n)
			return
		}
		r.inline("`", n)
	case atom.Strong, atom.B:
		r.inline("**", n)
	case atom.Em, atom.I, atom.Cite:
		r.inline("*", n)
	case atom.Del, atom.S, atom.Strike:
		r.inline("~~", n)
	case atom.A:
		href := strings.TrimSpace(attr(n, "href"))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			r.renderChildren(n)
			return
		}
		r.write("[")
		r.renderChildren(n)
		r.write("](" + href + ")")
	case atom.Img:
		src := strings.TrimSpace(attr(n, "src"))
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		r.write("![" + attr(n, "alt") + "](" + src + ")")
	case atom.Blockquote:
		r.blockquote(n)
	case atom.Table:
		r.table(n)
	default:
		r.renderChildren(n)
	}
}

func (r *htmlRenderer) text(data string) {
	if r.pre > 0 {
		r.write(data)
		return
	}
	fields := strings.Fields(data)
	if len(fields) == 0 {
		if data != "" && !r.lineStart && !r.lastSpace {
			r.write(" ")
		}
		return
	}
	out := strings.Join(fields, " ")
	if isSpace(data[0]) && !r.lineStart && !r.lastSpace {
		out = " " + out
	}
	if isSpace(data[len(data)-1]) {
		out += " "
	}
	r.write(out)
}

func (r *htmlRenderer) inline(marker string, n *html.Node) {
	var sub htmlRenderer
	sub.lineStart = true
	sub.pre = r.pre
	sub.renderChildren(n)
	content := strings.TrimSpace(sub.b.String())
	if content == "" {
		return
	}
	r.write(marker + content + marker)
}

func (r *htmlRenderer) listItem(n *html.Node) {
	depth := len(r.lists)
	marker := "- "
	if depth > 0 {
		top := &r.lists[depth-1]
		top.index++
		if top.ordered {
			marker = fmt.Sprintf("%d. ", top.index)
		}
	} else {
		depth = 1
	}
	r.ensureNewline()
	r.write(strings.Repeat("  ", depth-1) + marker)
	r.lineStart = true
	r.renderChildren(n)
	r.ensureNewline()
}

func (r *htmlRenderer) blockquote(n *html.Node) {
	var sub htmlRenderer
	sub.lineStart = true
	sub.renderChildren(n)
	content := strings.TrimSpace(cleanMarkdown(sub.b.String()))
	if content == "" {
		return
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("> "+line, " ")
	}
	r.ensureBlank()
	r.write(strings.Join(lines, "\n"))
	r.ensureBlank()
}

func (r *htmlRenderer) table(n *html.Node) {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				rows = append(rows, r.tableRow(c))
			case atom.Thead, atom.Tbody, atom.Tfoot:
				walk(c)
			}
		}
	}
	walk(n)
	if len(rows) == 0 {
		return
	}
	r.ensureBlank()
	r.write(renderTable(rows))
	r.ensureBlank()
}

func (r *htmlRenderer) tableRow(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		var sub htmlRenderer
		sub.lineStart = true
		sub.renderChildren(c)
		cells = append(cells, strings.Join(strings.Fields(sub.b.String()), " "))
	}
	return cells
}

// renderTable writes rows as a pipe table with the first row as header.
// Short rows are padded.
func renderTable(rows [][]string) string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	if width == 0 {
		return ""
	}
	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(row) {
				cell = escapeCell(row[i])
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}
	writeRow(rows[0])
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func codeLanguage(pre *html.Node) string {
	nodes := []*html.Node{pre}
	if c := pre.FirstChild; c != nil && c.Type == html.ElementNode && c.DataAtom == atom.Code {
		nodes = append(nodes, c)
	}
	for _, node := range nodes {
		for _, class := range strings.Fields(attr(node, "class")) {
			for _, prefix := range []string{"language-", "lang-"} {
				if strings.HasPrefix(class, prefix) {
					return strings.TrimPrefix(class, prefix)
				}
			}
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
