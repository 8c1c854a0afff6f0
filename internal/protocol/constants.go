package protocol

const (
	ToolNameReadFileContent  = "read_file_content"
	ToolNameWriteFileContent = "write_file_content"
	ToolNameReplaceInFile    = "replace_in_file"
	ToolNameListDirectory    = "list_directory"

	ToolNameConvertFileToMarkdown = "convert_file_to_markdown"
	ToolNameConvertURLToMarkdown  = "convert_url_to_markdown"

	ToolNameFigmaGetFile              = "figma_get_file"
	ToolNameFigmaGetFileNodes         = "figma_get_file_nodes"
	ToolNameFigmaGetImage             = "figma_get_image"
	ToolNameFigmaGetImageFills        = "figma_get_image_fills"
	ToolNameFigmaGetComments          = "figma_get_comments"
	ToolNameFigmaPostComment          = "figma_post_comment"
	ToolNameFigmaDeleteComment        = "figma_delete_comment"
	ToolNameFigmaGetTeamProjects      = "figma_get_team_projects"
	ToolNameFigmaGetProjectFiles      = "figma_get_project_files"
	ToolNameFigmaGetTeamComponents    = "figma_get_team_components"
	ToolNameFigmaGetFileComponents    = "figma_get_file_components"
	ToolNameFigmaGetComponent         = "figma_get_component"
	ToolNameFigmaGetTeamComponentSets = "figma_get_team_component_sets"
	ToolNameFigmaGetTeamStyles        = "figma_get_team_styles"
	ToolNameFigmaGetFileStyles        = "figma_get_file_styles"
	ToolNameFigmaGetStyle             = "figma_get_style"
)

const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// JSON-RPC 2.0 error codes.
const (
	RPCParseError     = -32700
	RPCInvalidRequest = -32600
	RPCMethodNotFound = -32601

	// RPCUnauthorized and RPCSessionNotFound are server-defined.
	RPCUnauthorized    = -32001
	RPCSessionNotFound = -32002
	RPCRateLimited     = -32003
)

const (
	ErrorCodeUnauthorized    = "UNAUTHORIZED"
	ErrorCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrorCodeRateLimited     = "RATE_LIMITED"
)

const (
	DefaultListenAddr      = "127.0.0.1:8087"
	DefaultMCPPath         = "/mcp"
	DefaultProtocolVersion = "2025-03-26"

	ServerName = "mcp-toolbox"

	MCPSessionHeader = "MCP-Session-Id"
)
