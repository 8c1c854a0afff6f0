package model

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultFields(t *testing.T) {
	ok := Ok(map[string]any{"path": "/tmp/x"}).Fields()
	assert.Equal(t, map[string]any{"path": "/tmp/x", "success": true}, ok)

	failed := Err(KindNotFound, "File not found: x", map[string]any{"content": ""}).Fields()
	assert.Equal(t, map[string]any{
		"content":    "",
		"success":    false,
		"error":      "File not found: x",
		"error_kind": "not_found",
	}, failed)
}

func TestFromError(t *testing.T) {
	toolErr := &ToolError{Kind: KindInvalidParameter, Message: "bad", Fields: map[string]any{"total_chunks": 2}}
	res := FromError(fmt.Errorf("wrapped: %w", toolErr), map[string]any{"content": "", "total_chunks": 0})
	assert.False(t, res.OK())
	assert.Equal(t, KindInvalidParameter, res.Kind())
	assert.Equal(t, "wrapped: bad", res.Message())
	assert.Equal(t, 2, res.Fields()["total_chunks"])
	assert.Equal(t, "", res.Fields()["content"])

	provider := &ProviderError{Code: "FIGMA_NOT_FOUND", Message: "Figma API error: Not found", StatusCode: 404}
	res = FromError(provider, nil)
	assert.Equal(t, KindUpstream, res.Kind())
	assert.Equal(t, "Figma API error: Not found", res.Message())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{err: fmt.Errorf("open: %w", fs.ErrNotExist), want: KindNotFound},
		{err: fmt.Errorf("open: %w", fs.ErrPermission), want: KindPermissionDenied},
		{err: fmt.Errorf("key: %w", ErrMissingAPIKey), want: KindConfig},
		{err: &ProviderError{Code: "X"}, want: KindUpstream},
		{err: errors.New("boom"), want: KindIO},
		{err: NewToolError(KindWrongType, "Path is not a file: x", fs.ErrNotExist), want: KindWrongType},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, KindOf(tc.err), tc.err.Error())
	}
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}
