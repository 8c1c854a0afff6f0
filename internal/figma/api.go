package figma

import (
	"context"
	"net/http"
	"net/url"
)

// FileParams are the optional arguments of GetFile.
type FileParams struct {
	Version    *string
	Depth      *int64
	BranchData *bool
}

// NodesParams are the optional arguments of GetFileNodes.
type NodesParams struct {
	Depth   *int64
	Version *string
}

// ImageParams are the render options of GetImage.
type ImageParams struct {
	Scale             *float64
	Format            *string
	SVGIncludeID      *bool
	SVGSimplifyStroke *bool
	UseAbsoluteBounds *bool
}

// PageParams paginate team listings.
type PageParams struct {
	PageSize *int64
	Cursor   *string
}

func (p PageParams) query() *Query {
	return NewQuery().Int("page_size", p.PageSize).Text("cursor", p.Cursor)
}

// Vector is a canvas offset.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClientMeta positions a comment on the canvas.
type ClientMeta struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	NodeID     string  `json:"node_id,omitempty"`
	NodeOffset *Vector `json:"node_offset,omitempty"`
}

// CommentRequest is the body of PostComment.
type CommentRequest struct {
	Message    string      `json:"message"`
	ClientMeta *ClientMeta `json:"client_meta,omitempty"`
	CommentID  string      `json:"comment_id,omitempty"`
}

func (c *Client) get(ctx context.Context, path string, query *Query) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) GetFile(ctx context.Context, fileKey string, p FileParams) (map[string]any, error) {
	q := NewQuery().Text("version", p.Version).Int("depth", p.Depth).Bool("branch_data", p.BranchData)
	return c.get(ctx, "/files/"+url.PathEscape(fileKey), q)
}

func (c *Client) GetFileNodes(ctx context.Context, fileKey string, nodeIDs []string, p NodesParams) (map[string]any, error) {
	q := NewQuery().List("ids", nodeIDs).Int("depth", p.Depth).Text("version", p.Version)
	return c.get(ctx, "/files/"+url.PathEscape(fileKey)+"/nodes", q)
}

func (c *Client) GetImage(ctx context.Context, fileKey string, ids []string, p ImageParams) (map[string]any, error) {
	q := NewQuery().
		List("ids", ids).
		Float("scale", p.Scale).
		Text("format", p.Format).
		Bool("svg_include_id", p.SVGIncludeID).
		Bool("svg_simplify_stroke", p.SVGSimplifyStroke).
		Bool("use_absolute_bounds", p.UseAbsoluteBounds)
	return c.get(ctx, "/images/"+url.PathEscape(fileKey), q)
}

func (c *Client) GetImageFills(ctx context.Context, fileKey string) (map[string]any, error) {
	return c.get(ctx, "/files/"+url.PathEscape(fileKey)+"/images", nil)
}

func (c *Client) GetComments(ctx context.Context, fileKey string) (map[string]any, error) {
	return c.get(ctx, "/files/"+url.PathEscape(fileKey)+"/comments", nil)
}

func (c *Client) PostComment(ctx context.Context, fileKey string, req CommentRequest) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/files/"+url.PathEscape(fileKey)+"/comments", nil, req)
}

func (c *Client) DeleteComment(ctx context.Context, fileKey, commentID string) (map[string]any, error) {
	path := "/files/" + url.PathEscape(fileKey) + "/comments/" + url.PathEscape(commentID)
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) GetTeamProjects(ctx context.Context, teamID string, p PageParams) (map[string]any, error) {
	return c.get(ctx, "/teams/"+url.PathEscape(teamID)+"/projects", p.query())
}

func (c *Client) GetProjectFiles(ctx context.Context, projectID string, p PageParams, branchData *bool) (map[string]any, error) {
	return c.get(ctx, "/projects/"+url.PathEscape(projectID)+"/files", p.query().Bool("branch_data", branchData))
}

func (c *Client) GetTeamComponents(ctx context.Context, teamID string, p PageParams) (map[string]any, error) {
	return c.get(ctx, "/teams/"+url.PathEscape(teamID)+"/components", p.query())
}

func (c *Client) GetFileComponents(ctx context.Context, fileKey string) (map[string]any, error) {
	return c.get(ctx, "/files/"+url.PathEscape(fileKey)+"/components", nil)
}

func (c *Client) GetComponent(ctx context.Context, key string) (map[string]any, error) {
	return c.get(ctx, "/components/"+url.PathEscape(key), nil)
}

func (c *Client) GetTeamComponentSets(ctx context.Context, teamID string, p PageParams) (map[string]any, error) {
	return c.get(ctx, "/teams/"+url.PathEscape(teamID)+"/component_sets", p.query())
}

func (c *Client) GetTeamStyles(ctx context.Context, teamID string, p PageParams) (map[string]any, error) {
	return c.get(ctx, "/teams/"+url.PathEscape(teamID)+"/styles", p.query())
}

func (c *Client) GetFileStyles(ctx context.Context, fileKey string) (map[string]any, error) {
	return c.get(ctx, "/files/"+url.PathEscape(fileKey)+"/styles", nil)
}

func (c *Client) GetStyle(ctx context.Context, key string) (map[string]any, error) {
	return c.get(ctx, "/styles/"+url.PathEscape(key), nil)
}
