package mcp

import (
	"context"

	"mcptoolbox/internal/fileops"
	"mcptoolbox/internal/protocol"
)

func (s *Server) fileTools() []*Tool {
	return []*Tool{
		{
			Name:        protocol.ToolNameReadFileContent,
			Description: "Read file content. Args: path (required, Path to the file to read), encoding (optional, File encoding), chunk_size (optional, Size of each chunk in bytes, default: 1MB), chunk_index (optional, Index of the chunk to retrieve, 0-based)",
			InputSchema: objectSchema(map[string]interface{}{
				"path":        stringProp("Path to the file to read"),
				"encoding":    withDefault(stringProp("File encoding"), fileops.DefaultEncoding),
				"chunk_size":  withDefault(integerProp("Size of each chunk in bytes"), fileops.DefaultChunkSize),
				"chunk_index": withDefault(integerProp("Index of the chunk to retrieve, 0-based"), 0),
			}, "path"),
			handler:       s.handleReadFileContent,
			failureFields: map[string]interface{}{"content": ""},
		},
		{
			Name:        protocol.ToolNameWriteFileContent,
			Description: "Write content to a file. Args: path (required, Path to the file to write), content (required, Content to write), encoding (optional, File encoding), append (optional, Whether to append to the file)",
			InputSchema: objectSchema(map[string]interface{}{
				"path":     stringProp("Path to the file to write"),
				"content":  stringProp("Content to write"),
				"encoding": withDefault(stringProp("File encoding"), fileops.DefaultEncoding),
				"append":   withDefault(boolProp("Whether to append to the file"), false),
			}, "path", "content"),
			handler: s.handleWriteFileContent,
		},
		{
			Name:        protocol.ToolNameReplaceInFile,
			Description: "Replace content in a file using regular expressions. Args: path (required, Path to the file), pattern (required, Regular expression pattern), replacement (required, Replacement string), encoding (optional, File encoding), count (optional, Maximum number of replacements)",
			InputSchema: objectSchema(map[string]interface{}{
				"path":        stringProp("Path to the file"),
				"pattern":     stringProp("Regular expression pattern"),
				"replacement": stringProp("Replacement string; $1, ${name}, \\1 and \\g<name> refer to groups"),
				"encoding":    withDefault(stringProp("File encoding"), fileops.DefaultEncoding),
				"count":       withDefault(integerProp("Maximum number of replacements, 0 for all"), 0),
			}, "path", "pattern", "replacement"),
			handler:       s.handleReplaceInFile,
			failureFields: map[string]interface{}{"replacements": 0},
		},
		{
			Name:        protocol.ToolNameListDirectory,
			Description: "List directory contents with detailed information. Args: path (required, Directory path), recursive (optional, Whether to list recursively), max_depth (optional, Maximum recursion depth), include_hidden (optional, Whether to include hidden files)",
			InputSchema: objectSchema(map[string]interface{}{
				"path":           stringProp("Directory path"),
				"recursive":      withDefault(boolProp("Whether to list recursively"), false),
				"max_depth":      withDefault(integerProp("Maximum recursion depth, -1 for unlimited"), -1),
				"include_hidden": withDefault(boolProp("Whether to include hidden files"), false),
			}, "path"),
			handler:       s.handleListDirectory,
			failureFields: map[string]interface{}{"entries": []interface{}{}},
		},
	}
}

func withDefault(prop map[string]interface{}, value interface{}) map[string]interface{} {
	prop["default"] = value
	return prop
}

func (s *Server) handleReadFileContent(_ context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	path, err := parseRequiredString(args, "path")
	if err != nil {
		return nil, invalidArgument(err)
	}
	encoding, err := parseOptionalString(args, "encoding", fileops.DefaultEncoding)
	if err != nil {
		return nil, invalidArgument(err)
	}
	chunkSize, err := parseOptionalInteger(args, "chunk_size", fileops.DefaultChunkSize)
	if err != nil {
		return nil, invalidArgument(err)
	}
	chunkIndex, err := parseOptionalInteger(args, "chunk_index", 0)
	if err != nil {
		return nil, invalidArgument(err)
	}

	chunk, err := fileops.ReadChunk(fileops.ChunkRequest{
		Path:       path,
		Encoding:   encoding,
		ChunkSize:  chunkSize,
		ChunkIndex: chunkIndex,
	})
	if err != nil {
		return nil, err
	}
	return chunk.Fields(), nil
}

func (s *Server) handleWriteFileContent(_ context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	path, err := parseRequiredString(args, "path")
	if err != nil {
		return nil, invalidArgument(err)
	}
	content, err := parseRequiredText(args, "content")
	if err != nil {
		return nil, invalidArgument(err)
	}
	encoding, err := parseOptionalString(args, "encoding", fileops.DefaultEncoding)
	if err != nil {
		return nil, invalidArgument(err)
	}
	appendMode, err := parseOptionalBool(args, "append", false)
	if err != nil {
		return nil, invalidArgument(err)
	}

	res, err := fileops.WriteFile(fileops.WriteRequest{
		Path:     path,
		Content:  content,
		Encoding: encoding,
		Append:   appendMode,
	})
	if err != nil {
		return nil, err
	}
	return res.Fields(), nil
}

func (s *Server) handleReplaceInFile(_ context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	path, err := parseRequiredString(args, "path")
	if err != nil {
		return nil, invalidArgument(err)
	}
	pattern, err := parseRequiredText(args, "pattern")
	if err != nil {
		return nil, invalidArgument(err)
	}
	replacement, err := parseRequiredText(args, "replacement")
	if err != nil {
		return nil, invalidArgument(err)
	}
	encoding, err := parseOptionalString(args, "encoding", fileops.DefaultEncoding)
	if err != nil {
		return nil, invalidArgument(err)
	}
	count, err := parseOptionalInteger(args, "count", 0)
	if err != nil {
		return nil, invalidArgument(err)
	}

	res, err := fileops.ReplaceInFile(fileops.ReplaceRequest{
		Path:        path,
		Pattern:     pattern,
		Replacement: replacement,
		Encoding:    encoding,
		Count:       int(count),
	})
	if err != nil {
		return nil, err
	}
	return res.Fields(), nil
}

func (s *Server) handleListDirectory(_ context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	path, err := parseRequiredString(args, "path")
	if err != nil {
		return nil, invalidArgument(err)
	}
	recursive, err := parseOptionalBool(args, "recursive", false)
	if err != nil {
		return nil, invalidArgument(err)
	}
	maxDepth, err := parseOptionalInteger(args, "max_depth", -1)
	if err != nil {
		return nil, invalidArgument(err)
	}
	includeHidden, err := parseOptionalBool(args, "include_hidden", false)
	if err != nil {
		return nil, invalidArgument(err)
	}

	listing, err := fileops.ListDirectory(fileops.ListRequest{
		Path:          path,
		Recursive:     recursive,
		MaxDepth:      int(maxDepth),
		IncludeHidden: includeHidden,
	})
	if err != nil {
		return nil, err
	}
	return listing.Fields(), nil
}
