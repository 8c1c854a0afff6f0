package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mcptoolbox/internal/config"
	"mcptoolbox/internal/figma"
	"mcptoolbox/internal/markdown"
	"mcptoolbox/internal/model"
	"mcptoolbox/internal/protocol"
)

const (
	sessionCleanupInterval = 30 * time.Minute
	defaultSessionTTL      = 24 * time.Hour
	maxRequestBytes        = 16 << 20
	stdioSessionID         = "stdio"
)

// Deps are the collaborators of a Server. Nil members are built from the
// config.
type Deps struct {
	Logger    *zap.Logger
	Journal   model.Journal
	Figma     *figma.Client
	Cache     *figma.Cache
	Converter *markdown.Converter
	Version   string
}

// Server dispatches MCP requests to the registered tools over stdio or
// streamable HTTP.
type Server struct {
	cfg     config.Config
	logger  *zap.Logger
	journal model.Journal
	version string

	figma     *figma.Client
	cache     *figma.Cache
	converter *markdown.Converter

	tools     []*Tool
	toolIndex map[string]*Tool

	sessionMu sync.Mutex
	sessions  map[string]time.Time

	limiter        *ipRateLimiter
	trustedProxies []proxyRange

	now func() time.Time
}

func NewServer(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		journal:   deps.Journal,
		version:   deps.Version,
		figma:     deps.Figma,
		cache:     deps.Cache,
		converter: deps.Converter,
		sessions:  make(map[string]time.Time),
		limiter:   newIPRateLimiter(float64(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst),
		now:       time.Now,
	}
	if s.version == "" {
		s.version = "dev"
	}
	if s.figma == nil {
		s.figma = figma.NewClient(figma.Options{
			APIKey:  cfg.Figma.APIKey,
			BaseURL: cfg.Figma.BaseURL,
			Timeout: cfg.FigmaTimeout(),
			Retries: cfg.Figma.Retries,
			Logger:  logger.Named("figma"),
		})
	}
	if s.cache == nil {
		s.cache = figma.NewCache(cfg.CacheDir, deps.Journal, logger.Named("cache"))
	}
	if s.converter == nil {
		s.converter = markdown.NewConverter(logger.Named("markdown"))
	}
	s.trustedProxies = parseTrustedProxies(cfg.Server.TrustedProxies, logger)
	s.registerTools()
	return s
}

// dispatch handles one request. It returns nil for notifications.
func (s *Server) dispatch(ctx context.Context, req rpcRequest) *rpcResponse {
	var resp *rpcResponse
	switch req.Method {
	case protocol.MethodInitialize:
		resp = newResult(req.ID, s.initializeResult())
	case protocol.MethodInitialized:
		return nil
	case protocol.MethodPing:
		resp = newResult(req.ID, map[string]interface{}{})
	case protocol.MethodToolsList:
		resp = newResult(req.ID, map[string]interface{}{"tools": s.tools})
	case protocol.MethodToolsCall:
		resp = s.handleToolsCall(ctx, req)
	default:
		if strings.HasPrefix(req.Method, "notifications/") {
			return nil
		}
		resp = newRPCError(req.ID, protocol.RPCMethodNotFound, "method not found: "+req.Method, "METHOD_NOT_FOUND")
	}
	if req.isNotification() {
		return nil
	}
	return resp
}

func (s *Server) initializeResult() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": s.cfg.Server.ProtocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{"listChanged": false},
		},
		"serverInfo": map[string]interface{}{
			"name":    protocol.ServerName,
			"version": s.version,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req rpcRequest) *rpcResponse {
	params, err := parseToolsCallParams(req.Params)
	if err != nil {
		canonicalCode := "INVALID_FIELD"
		if vErr, ok := err.(validationError); ok && vErr.canonicalCode != "" {
			canonicalCode = vErr.canonicalCode
		}
		return newRPCError(req.ID, protocol.RPCInvalidRequest, err.Error(), canonicalCode)
	}
	result := s.CallTool(ctx, params.Name, params.Arguments)
	return newResult(req.ID, newToolCallResult(result))
}

type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

func parseToolsCallParams(raw json.RawMessage) (toolsCallParams, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return toolsCallParams{}, validationError{
			message:       "params is required",
			canonicalCode: "MISSING_FIELD",
		}
	}

	var params toolsCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return toolsCallParams{}, validationError{
			message:       "invalid tools/call params",
			canonicalCode: "INVALID_FIELD",
		}
	}

	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		return toolsCallParams{}, validationError{
			message:       "tools/call params.name is required",
			canonicalCode: "MISSING_FIELD",
		}
	}
	if params.Arguments == nil {
		params.Arguments = map[string]interface{}{}
	}
	return params, nil
}

type toolCallResult struct {
	Content           []toolContentItem      `json:"content"`
	StructuredContent map[string]interface{} `json:"structuredContent"`
	IsError           bool                   `json:"isError"`
}

type toolContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func newToolCallResult(result model.Result) toolCallResult {
	fields := result.Fields()
	text, err := json.Marshal(fields)
	if err != nil {
		text = []byte(result.Message())
	}
	return toolCallResult{
		Content:           []toolContentItem{{Type: "text", Text: string(text)}},
		StructuredContent: fields,
		IsError:           !result.OK(),
	}
}
