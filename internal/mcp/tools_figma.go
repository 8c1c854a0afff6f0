package mcp

import (
	"context"
	"fmt"

	"mcptoolbox/internal/figma"
	"mcptoolbox/internal/protocol"
)

func pageProps(props map[string]interface{}) map[string]interface{} {
	props["page_size"] = integerProp("Number of items per page")
	props["cursor"] = stringProp("Cursor for pagination")
	return props
}

func (s *Server) figmaTools() []*Tool {
	fileKeyOnly := func(name, description, keyDescription string, call func(context.Context, string) (map[string]interface{}, error)) *Tool {
		return &Tool{
			Name:        name,
			Description: description,
			InputSchema: objectSchema(map[string]interface{}{"file_key": stringProp(keyDescription)}, "file_key"),
			handler: func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
				fileKey, err := parseRequiredString(args, "file_key")
				if err != nil {
					return nil, invalidArgument(err)
				}
				return call(ctx, fileKey)
			},
		}
	}
	keyOnly := func(name, description, keyDescription string, call func(context.Context, string) (map[string]interface{}, error)) *Tool {
		return &Tool{
			Name:        name,
			Description: description,
			InputSchema: objectSchema(map[string]interface{}{"key": stringProp(keyDescription)}, "key"),
			handler: func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
				key, err := parseRequiredString(args, "key")
				if err != nil {
					return nil, invalidArgument(err)
				}
				return call(ctx, key)
			},
		}
	}
	teamPaged := func(name, description string, call func(context.Context, string, figma.PageParams) (map[string]interface{}, error)) *Tool {
		return &Tool{
			Name:        name,
			Description: description,
			InputSchema: objectSchema(pageProps(map[string]interface{}{"team_id": stringProp("The team ID")}), "team_id"),
			handler: func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
				teamID, err := parseRequiredString(args, "team_id")
				if err != nil {
					return nil, invalidArgument(err)
				}
				page, err := parsePageParams(args)
				if err != nil {
					return nil, err
				}
				return call(ctx, teamID, page)
			},
		}
	}

	return []*Tool{
		{
			Name:        protocol.ToolNameFigmaGetFile,
			Description: "Get a Figma file by key. The response is saved to the local cache and the cache file path is returned. Args: file_key (required, The key of the file to get), version (optional, A specific version ID to get), depth (optional, Depth of nodes to return 1-4), branch_data (optional, Include branch data if true)",
			InputSchema: objectSchema(map[string]interface{}{
				"file_key":    stringProp("The key of the file to get"),
				"version":     stringProp("A specific version ID to get"),
				"depth":       integerProp("Depth of nodes to return 1-4"),
				"branch_data": boolProp("Include branch data if true"),
			}, "file_key"),
			handler: s.handleFigmaGetFile,
		},
		{
			Name:        protocol.ToolNameFigmaGetFileNodes,
			Description: "Get specific nodes from a Figma file. The response is saved to the local cache and the cache file path is returned. Args: file_key (required, The key of the file to get nodes from), node_ids (required, Array of node IDs to get), depth (optional, Depth of nodes to return 1-4), version (optional, A specific version ID to get)",
			InputSchema: objectSchema(map[string]interface{}{
				"file_key": stringProp("The key of the file to get nodes from"),
				"node_ids": stringListProp("Array of node IDs to get"),
				"depth":    integerProp("Depth of nodes to return 1-4"),
				"version":  stringProp("A specific version ID to get"),
			}, "file_key", "node_ids"),
			handler: s.handleFigmaGetFileNodes,
		},
		{
			Name:        protocol.ToolNameFigmaGetImage,
			Description: "Get images for nodes in a Figma file. Args: file_key (required, The key of the file to get images from), ids (required, Array of node IDs to render), scale (optional, Scale factor to render at 0.01-4), format_type (optional, Image format jpg/png/svg/pdf), svg_include_id (optional, Include IDs in SVG output), svg_simplify_stroke (optional, Simplify strokes in SVG output), use_absolute_bounds (optional, Use absolute bounds)",
			InputSchema: objectSchema(map[string]interface{}{
				"file_key":            stringProp("The key of the file to get images from"),
				"ids":                 stringListProp("Array of node IDs to render"),
				"scale":               numberProp("Scale factor to render at 0.01-4"),
				"format_type":         map[string]interface{}{"type": "string", "enum": []string{"jpg", "png", "svg", "pdf"}, "description": "Image format"},
				"svg_include_id":      boolProp("Include IDs in SVG output"),
				"svg_simplify_stroke": boolProp("Simplify strokes in SVG output"),
				"use_absolute_bounds": boolProp("Use absolute bounds"),
			}, "file_key", "ids"),
			handler: s.handleFigmaGetImage,
		},
		fileKeyOnly(protocol.ToolNameFigmaGetImageFills,
			"Get URLs for images used in a Figma file. Args: file_key (required, The key of the file to get image fills from)",
			"The key of the file to get image fills from", s.figma.GetImageFills),
		fileKeyOnly(protocol.ToolNameFigmaGetComments,
			"Get comments on a Figma file. Args: file_key (required, The key of the file to get comments from)",
			"The key of the file to get comments from", s.figma.GetComments),
		{
			Name:        protocol.ToolNameFigmaPostComment,
			Description: "Post a comment on a Figma file. Args: file_key (required, The key of the file to comment on), message (required, Comment message text), client_meta (optional, Position of the comment x/y/node_id/node_offset), comment_id (optional, ID of comment to reply to)",
			InputSchema: objectSchema(map[string]interface{}{
				"file_key":    stringProp("The key of the file to comment on"),
				"message":     stringProp("Comment message text"),
				"client_meta": clientMetaSchema(),
				"comment_id":  stringProp("ID of comment to reply to"),
			}, "file_key", "message"),
			handler: s.handleFigmaPostComment,
		},
		{
			Name:        protocol.ToolNameFigmaDeleteComment,
			Description: "Delete a comment from a Figma file. Args: file_key (required, The key of the file to delete a comment from), comment_id (required, ID of the comment to delete)",
			InputSchema: objectSchema(map[string]interface{}{
				"file_key":   stringProp("The key of the file to delete a comment from"),
				"comment_id": stringProp("ID of the comment to delete"),
			}, "file_key", "comment_id"),
			handler: s.handleFigmaDeleteComment,
		},
		teamPaged(protocol.ToolNameFigmaGetTeamProjects,
			"Get projects for a team. Args: team_id (required, The team ID), page_size (optional, Number of items per page), cursor (optional, Cursor for pagination)",
			s.figma.GetTeamProjects),
		{
			Name:        protocol.ToolNameFigmaGetProjectFiles,
			Description: "Get files for a project. Args: project_id (required, The project ID), page_size (optional, Number of items per page), cursor (optional, Cursor for pagination), branch_data (optional, Include branch data if true)",
			InputSchema: objectSchema(pageProps(map[string]interface{}{
				"project_id":  stringProp("The project ID"),
				"branch_data": boolProp("Include branch data if true"),
			}), "project_id"),
			handler: s.handleFigmaGetProjectFiles,
		},
		teamPaged(protocol.ToolNameFigmaGetTeamComponents,
			"Get components for a team. Args: team_id (required, The team ID), page_size (optional, Number of items per page), cursor (optional, Cursor for pagination)",
			s.figma.GetTeamComponents),
		fileKeyOnly(protocol.ToolNameFigmaGetFileComponents,
			"Get components from a file. Args: file_key (required, The key of the file to get components from)",
			"The key of the file to get components from", s.figma.GetFileComponents),
		keyOnly(protocol.ToolNameFigmaGetComponent,
			"Get a component by key. Args: key (required, The component key)",
			"The component key", s.figma.GetComponent),
		teamPaged(protocol.ToolNameFigmaGetTeamComponentSets,
			"Get component sets for a team. Args: team_id (required, The team ID), page_size (optional, Number of items per page), cursor (optional, Cursor for pagination)",
			s.figma.GetTeamComponentSets),
		teamPaged(protocol.ToolNameFigmaGetTeamStyles,
			"Get styles for a team. Args: team_id (required, The team ID), page_size (optional, Number of items per page), cursor (optional, Cursor for pagination)",
			s.figma.GetTeamStyles),
		fileKeyOnly(protocol.ToolNameFigmaGetFileStyles,
			"Get styles from a file. Args: file_key (required, The key of the file to get styles from)",
			"The key of the file to get styles from", s.figma.GetFileStyles),
		keyOnly(protocol.ToolNameFigmaGetStyle,
			"Get a style by key. Args: key (required, The style key)",
			"The style key", s.figma.GetStyle),
	}
}

func clientMetaSchema() map[string]interface{} {
	vector := objectSchema(map[string]interface{}{
		"x": numberProp("Horizontal offset"),
		"y": numberProp("Vertical offset"),
	}, "x", "y")
	meta := objectSchema(map[string]interface{}{
		"x":           numberProp("Canvas x position"),
		"y":           numberProp("Canvas y position"),
		"node_id":     stringProp("Node to attach the comment to"),
		"node_offset": vector,
	}, "x", "y")
	meta["description"] = "Position of the comment"
	return meta
}

func parsePageParams(args map[string]interface{}) (figma.PageParams, error) {
	pageSize, err := parseIntegerPtr(args, "page_size")
	if err != nil {
		return figma.PageParams{}, invalidArgument(err)
	}
	cursor, err := parseStringPtr(args, "cursor")
	if err != nil {
		return figma.PageParams{}, invalidArgument(err)
	}
	return figma.PageParams{PageSize: pageSize, Cursor: cursor}, nil
}

func (s *Server) handleFigmaGetFile(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	fileKey, err := parseRequiredString(args, "file_key")
	if err != nil {
		return nil, invalidArgument(err)
	}
	version, err := parseStringPtr(args, "version")
	if err != nil {
		return nil, invalidArgument(err)
	}
	depth, err := parseIntegerPtr(args, "depth")
	if err != nil {
		return nil, invalidArgument(err)
	}
	branchData, err := parseBoolPtr(args, "branch_data")
	if err != nil {
		return nil, invalidArgument(err)
	}

	payload, err := s.figma.GetFile(ctx, fileKey, figma.FileParams{Version: version, Depth: depth, BranchData: branchData})
	if err != nil {
		return nil, err
	}
	return s.cache.Store(ctx, figma.CacheKindFile, fileKey, payload), nil
}

func (s *Server) handleFigmaGetFileNodes(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	fileKey, err := parseRequiredString(args, "file_key")
	if err != nil {
		return nil, invalidArgument(err)
	}
	nodeIDs, err := parseRequiredStringSlice(args, "node_ids")
	if err != nil {
		return nil, invalidArgument(err)
	}
	depth, err := parseIntegerPtr(args, "depth")
	if err != nil {
		return nil, invalidArgument(err)
	}
	version, err := parseStringPtr(args, "version")
	if err != nil {
		return nil, invalidArgument(err)
	}

	payload, err := s.figma.GetFileNodes(ctx, fileKey, nodeIDs, figma.NodesParams{Depth: depth, Version: version})
	if err != nil {
		return nil, err
	}
	return s.cache.Store(ctx, figma.CacheKindFileNodes, fileKey, payload), nil
}

func (s *Server) handleFigmaGetImage(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	fileKey, err := parseRequiredString(args, "file_key")
	if err != nil {
		return nil, invalidArgument(err)
	}
	ids, err := parseRequiredStringSlice(args, "ids")
	if err != nil {
		return nil, invalidArgument(err)
	}
	var p figma.ImageParams
	if p.Scale, err = parseNumberPtr(args, "scale"); err != nil {
		return nil, invalidArgument(err)
	}
	if p.Format, err = parseStringPtr(args, "format_type"); err != nil {
		return nil, invalidArgument(err)
	}
	if p.SVGIncludeID, err = parseBoolPtr(args, "svg_include_id"); err != nil {
		return nil, invalidArgument(err)
	}
	if p.SVGSimplifyStroke, err = parseBoolPtr(args, "svg_simplify_stroke"); err != nil {
		return nil, invalidArgument(err)
	}
	if p.UseAbsoluteBounds, err = parseBoolPtr(args, "use_absolute_bounds"); err != nil {
		return nil, invalidArgument(err)
	}
	return s.figma.GetImage(ctx, fileKey, ids, p)
}

func (s *Server) handleFigmaPostComment(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	fileKey, err := parseRequiredString(args, "file_key")
	if err != nil {
		return nil, invalidArgument(err)
	}
	message, err := parseRequiredString(args, "message")
	if err != nil {
		return nil, invalidArgument(err)
	}
	commentID, err := parseOptionalString(args, "comment_id", "")
	if err != nil {
		return nil, invalidArgument(err)
	}
	meta, err := parseClientMeta(args)
	if err != nil {
		return nil, invalidArgument(err)
	}
	return s.figma.PostComment(ctx, fileKey, figma.CommentRequest{
		Message:    message,
		ClientMeta: meta,
		CommentID:  commentID,
	})
}

func parseClientMeta(args map[string]interface{}) (*figma.ClientMeta, error) {
	obj, ok, err := parseOptionalObject(args, "client_meta")
	if err != nil || !ok {
		return nil, err
	}
	if err := assertNoUnknownArguments(obj, map[string]struct{}{"x": {}, "y": {}, "node_id": {}, "node_offset": {}}); err != nil {
		return nil, fmt.Errorf("client_meta: %w", err)
	}
	meta := &figma.ClientMeta{}
	if meta.X, err = requiredNumber(obj, "x", "client_meta.x"); err != nil {
		return nil, err
	}
	if meta.Y, err = requiredNumber(obj, "y", "client_meta.y"); err != nil {
		return nil, err
	}
	if meta.NodeID, err = parseOptionalString(obj, "node_id", ""); err != nil {
		return nil, fmt.Errorf("client_meta.%w", err)
	}
	offset, ok, err := parseOptionalObject(obj, "node_offset")
	if err != nil {
		return nil, fmt.Errorf("client_meta.%w", err)
	}
	if ok {
		vec := &figma.Vector{}
		if vec.X, err = requiredNumber(offset, "x", "client_meta.node_offset.x"); err != nil {
			return nil, err
		}
		if vec.Y, err = requiredNumber(offset, "y", "client_meta.node_offset.y"); err != nil {
			return nil, err
		}
		meta.NodeOffset = vec
	}
	return meta, nil
}

func requiredNumber(obj map[string]interface{}, key, field string) (float64, error) {
	raw, ok := present(obj, key)
	if !ok {
		return 0, fmt.Errorf("%s is required", field)
	}
	return parseNumber(raw, field)
}

func (s *Server) handleFigmaDeleteComment(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	fileKey, err := parseRequiredString(args, "file_key")
	if err != nil {
		return nil, invalidArgument(err)
	}
	commentID, err := parseRequiredString(args, "comment_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	return s.figma.DeleteComment(ctx, fileKey, commentID)
}

func (s *Server) handleFigmaGetProjectFiles(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	projectID, err := parseRequiredString(args, "project_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	page, err := parsePageParams(args)
	if err != nil {
		return nil, err
	}
	branchData, err := parseBoolPtr(args, "branch_data")
	if err != nil {
		return nil, invalidArgument(err)
	}
	return s.figma.GetProjectFiles(ctx, projectID, page, branchData)
}
