package fileops

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

const DefaultEncoding = "utf-8"

var (
	errUnknownEncoding = errors.New("unknown encoding")
	errInvalidSequence = errors.New("invalid byte sequence")
)

// LookupEncoding resolves an encoding name. IANA names and WHATWG labels are
// accepted, with underscores treated as hyphens ("latin_1", "utf_16").
func LookupEncoding(name string) (encoding.Encoding, error) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	normalized := strings.ReplaceAll(lowered, "_", "-")
	switch normalized {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "latin-1", "latin1", "l1":
		normalized = "iso-8859-1"
	}

	for _, candidate := range []string{lowered, normalized} {
		if enc, err := ianaindex.IANA.Encoding(candidate); err == nil && enc != nil {
			return enc, nil
		}
		if enc, err := htmlindex.Get(candidate); err == nil && enc != nil {
			return enc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", errUnknownEncoding, name)
}

// decodeLossy decodes raw with enc. Invalid input becomes U+FFFD.
func decodeLossy(enc encoding.Encoding, raw []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// decodeStrict decodes raw with enc and rejects input that is not valid in
// that encoding.
func decodeStrict(enc encoding.Encoding, raw []byte) (string, error) {
	if enc == unicode.UTF8 {
		if !utf8.Valid(raw) {
			return "", errInvalidSequence
		}
		return string(raw), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	if !bytes.ContainsRune(out, utf8.RuneError) {
		return string(out), nil
	}
	// A replacement rune is only legitimate if the input really encodes it.
	back, err := enc.NewEncoder().Bytes(out)
	if err != nil || !bytes.Equal(back, raw) {
		return "", errInvalidSequence
	}
	return string(out), nil
}

// encodeStrict encodes text with enc and fails on runes the encoding cannot
// represent.
func encodeStrict(enc encoding.Encoding, text string) ([]byte, error) {
	if enc == unicode.UTF8 {
		return []byte(text), nil
	}
	return enc.NewEncoder().Bytes([]byte(text))
}
