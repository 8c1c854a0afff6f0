package fileops

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"mcptoolbox/internal/model"
)

// ReplaceRequest describes a replace_in_file call. Count limits the number
// of replacements; zero replaces every match.
type ReplaceRequest struct {
	Path        string
	Pattern     string
	Replacement string
	Encoding    string
	Count       int
}

type ReplaceResult struct {
	Path         string
	Replacements int
}

func (r *ReplaceResult) Fields() map[string]any {
	return map[string]any{
		"path":         r.Path,
		"replacements": r.Replacements,
	}
}

// ReplaceInFile rewrites the file at req.Path, replacing matches of
// req.Pattern. The file is only written when something was replaced.
func ReplaceInFile(req ReplaceRequest) (*ReplaceResult, error) {
	path := ExpandPath(req.Path)
	if _, err := statRegularFile(path, req.Path, "Failed to replace content: "); err != nil {
		return nil, err
	}
	if req.Count < 0 {
		return nil, model.NewToolError(model.KindInvalidParameter, "count must be >= 0", nil)
	}

	encName := req.Encoding
	if encName == "" {
		encName = DefaultEncoding
	}
	enc, err := LookupEncoding(encName)
	if err != nil {
		return nil, model.NewToolError(model.KindInvalidParameter, "Failed to replace content: "+err.Error(), err)
	}
	decodeErr := model.NewToolError(model.KindDecodeFailure,
		"Failed to decode file with encoding "+encName+". Try a different encoding.", nil)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ToolError{Kind: model.KindOf(err), Message: "Failed to replace content: " + err.Error(), Cause: err}
	}
	content, err := decodeStrict(enc, raw)
	if err != nil {
		decodeErr.Cause = err
		return nil, decodeErr
	}

	re, err := regexp.Compile(req.Pattern)
	if err != nil {
		return nil, model.NewToolError(model.KindInvalidParameter, "Invalid regular expression: "+err.Error(), err)
	}

	template, err := translateReplacement(req.Replacement, re)
	if err != nil {
		return nil, model.NewToolError(model.KindInvalidParameter, "Invalid replacement: "+err.Error(), err)
	}
	updated, n := replaceN(re, content, template, req.Count)
	if n > 0 {
		data, err := encodeStrict(enc, updated)
		if err != nil {
			return nil, &model.ToolError{Kind: model.KindIO, Message: "Failed to replace content: " + err.Error(), Cause: err}
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, &model.ToolError{Kind: model.KindOf(err), Message: "Failed to replace content: " + err.Error(), Cause: err}
		}
		if err := os.WriteFile(path, data, info.Mode().Perm()); err != nil {
			return nil, &model.ToolError{Kind: model.KindOf(err), Message: "Failed to replace content: " + err.Error(), Cause: err}
		}
	}
	return &ReplaceResult{Path: path, Replacements: n}, nil
}

// replaceN expands template for at most limit matches of re in src.
func replaceN(re *regexp.Regexp, src, template string, limit int) (string, int) {
	matches := re.FindAllStringSubmatchIndex(src, -1)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	if len(matches) == 0 {
		return src, 0
	}
	var b strings.Builder
	b.Grow(len(src))
	last := 0
	for _, m := range matches {
		b.WriteString(src[last:m[0]])
		b.Write(re.ExpandString(nil, template, src, m))
		last = m[1]
	}
	b.WriteString(src[last:])
	return b.String(), len(matches)
}

// translateReplacement rewrites backslash back-references ("\1", "\g<name>",
// "\g<2>") into regexp.Expand syntax. A literal "$" is escaped unless it
// already starts a Go-style reference. Backslash escapes for \n, \t and \\
// are honoured. A reference to a group re does not have is an error.
func translateReplacement(repl string, re *regexp.Regexp) (string, error) {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		switch {
		case c == '$':
			if i+1 < len(repl) && repl[i+1] == '$' {
				b.WriteString("$$")
				i++
			} else if isGoReference(repl[i+1:], re) {
				b.WriteByte('$')
			} else {
				b.WriteString("$$")
			}
		case c == '\\' && i+1 < len(repl):
			next := repl[i+1]
			switch {
			case next >= '0' && next <= '9':
				j := i + 1
				for j < len(repl) && j < i+3 && repl[j] >= '0' && repl[j] <= '9' {
					j++
				}
				if err := checkGroup(repl[i+1:j], re); err != nil {
					return "", err
				}
				b.WriteString("${" + repl[i+1:j] + "}")
				i = j - 1
			case next == 'g' && i+2 < len(repl) && repl[i+2] == '<':
				end := strings.IndexByte(repl[i+3:], '>')
				if end < 0 {
					b.WriteString(`\g`)
					i++
					continue
				}
				name := repl[i+3 : i+3+end]
				if err := checkGroup(name, re); err != nil {
					return "", err
				}
				b.WriteString("${" + name + "}")
				i += 3 + end
			case next == 'n':
				b.WriteByte('\n')
				i++
			case next == 't':
				b.WriteByte('\t')
				i++
			case next == '\\':
				b.WriteByte('\\')
				i++
			default:
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// checkGroup reports whether ref, a group number or name, exists in re.
func checkGroup(ref string, re *regexp.Regexp) error {
	if ref == "" {
		return errors.New("missing group name")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 0 || n > re.NumSubexp() {
			return fmt.Errorf("invalid group reference %d", n)
		}
		return nil
	}
	if re.SubexpIndex(ref) < 0 {
		return fmt.Errorf("unknown group name '%s'", ref)
	}
	return nil
}

// isGoReference reports whether rest (the text after a '$') is a group
// reference that regexp.Expand would resolve against re.
func isGoReference(rest string, re *regexp.Regexp) bool {
	if rest == "" {
		return false
	}
	name := rest
	if rest[0] == '{' {
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return false
		}
		name = rest[1:end]
	} else {
		n := 0
		for n < len(name) && isWordByte(name[n]) {
			n++
		}
		name = name[:n]
	}
	if name == "" {
		return false
	}
	if name[0] >= '0' && name[0] <= '9' {
		return true
	}
	return re.SubexpIndex(name) >= 0
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
