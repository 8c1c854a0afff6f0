package mcp

import (
	"context"

	"mcptoolbox/internal/protocol"
)

func (s *Server) markdownTools() []*Tool {
	return []*Tool{
		{
			Name:        protocol.ToolNameConvertFileToMarkdown,
			Description: "Convert a local file (HTML, text, Markdown, JSON, CSV, TSV) to Markdown. Args: input_file (required, The input file), output_file (required, The output Markdown file)",
			InputSchema: objectSchema(map[string]interface{}{
				"input_file":  stringProp("The input file"),
				"output_file": stringProp("The output Markdown file"),
			}, "input_file", "output_file"),
			handler: s.handleConvertFileToMarkdown,
		},
		{
			Name:        protocol.ToolNameConvertURLToMarkdown,
			Description: "Convert a URL to Markdown. Args: url (required, The URL to convert), output_file (required, The output Markdown file)",
			InputSchema: objectSchema(map[string]interface{}{
				"url":         stringProp("The URL to convert"),
				"output_file": stringProp("The output Markdown file"),
			}, "url", "output_file"),
			handler: s.handleConvertURLToMarkdown,
		},
	}
}

func (s *Server) handleConvertFileToMarkdown(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	input, err := parseRequiredString(args, "input_file")
	if err != nil {
		return nil, invalidArgument(err)
	}
	output, err := parseRequiredString(args, "output_file")
	if err != nil {
		return nil, invalidArgument(err)
	}
	res, err := s.converter.ConvertFile(ctx, input, output)
	if err != nil {
		return nil, err
	}
	return res.Fields(), nil
}

func (s *Server) handleConvertURLToMarkdown(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	rawURL, err := parseRequiredString(args, "url")
	if err != nil {
		return nil, invalidArgument(err)
	}
	output, err := parseRequiredString(args, "output_file")
	if err != nil {
		return nil, invalidArgument(err)
	}
	res, err := s.converter.ConvertURL(ctx, rawURL, output)
	if err != nil {
		return nil, err
	}
	return res.Fields(), nil
}
