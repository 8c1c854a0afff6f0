package mcp

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"mcptoolbox/internal/model"
)

type sessionKey struct{}

// withSession tags ctx with the MCP session a call arrived on.
func withSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

func sessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

type toolHandler func(context.Context, map[string]interface{}) (map[string]interface{}, error)

// Tool is one registered tool as advertised by tools/list.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`

	handler toolHandler
	// failureFields are reported with every failure of the tool, for
	// example an empty content string.
	failureFields map[string]interface{}
	allowed       map[string]struct{}
}

func (s *Server) registerTools() {
	var tools []*Tool
	if s.cfg.EnableFileOpsTools {
		tools = append(tools, s.fileTools()...)
	}
	if s.cfg.EnableFigmaTools {
		tools = append(tools, s.figmaTools()...)
	}
	if s.cfg.EnableMarkdownTools {
		tools = append(tools, s.markdownTools()...)
	}

	s.tools = make([]*Tool, 0, len(tools))
	s.toolIndex = make(map[string]*Tool, len(tools))
	for _, tool := range tools {
		if _, dup := s.toolIndex[tool.Name]; dup {
			s.logger.Warn("duplicate tool registration ignored", zap.String("tool", tool.Name))
			continue
		}
		props, _ := tool.InputSchema["properties"].(map[string]interface{})
		tool.allowed = lo.SliceToMap(lo.Keys(props), func(k string) (string, struct{}) {
			return k, struct{}{}
		})
		s.tools = append(s.tools, tool)
		s.toolIndex[tool.Name] = tool
	}
}

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []*Tool {
	return append([]*Tool(nil), s.tools...)
}

// CallTool runs a tool and converts every outcome, including panics, into an
// in-band result. The call is logged and journaled.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]interface{}) model.Result {
	start := s.now()
	tool, ok := s.toolIndex[name]
	var result model.Result
	if !ok {
		result = model.Err(model.KindInvalidParameter, "unknown tool: "+name, nil)
	} else {
		result = s.runTool(ctx, tool, args)
	}
	s.recordCall(ctx, name, result, s.now().Sub(start))
	return result
}

func (s *Server) runTool(ctx context.Context, tool *Tool, args map[string]interface{}) (result model.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool panicked",
				zap.String("tool", tool.Name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			result = model.Err(model.KindIO, "internal error", tool.failureFields)
		}
	}()

	if args == nil {
		args = map[string]interface{}{}
	}
	if err := assertNoUnknownArguments(args, tool.allowed); err != nil {
		return model.FromError(invalidArgument(err), tool.failureFields)
	}
	fields, err := tool.handler(ctx, args)
	if err != nil {
		return model.FromError(err, tool.failureFields)
	}
	return model.Ok(fields)
}

func (s *Server) recordCall(ctx context.Context, name string, result model.Result, elapsed time.Duration) {
	logFields := []zap.Field{
		zap.String("tool", name),
		zap.Bool("success", result.OK()),
		zap.Duration("elapsed", elapsed),
	}
	if !result.OK() {
		logFields = append(logFields, zap.String("error_kind", string(result.Kind())), zap.String("error", result.Message()))
	}
	s.logger.Info("tool call", logFields...)

	if s.journal == nil {
		return
	}
	rec := model.CallRecord{
		SessionID:  sessionFrom(ctx),
		Tool:       name,
		Success:    result.OK(),
		ErrorKind:  result.Kind(),
		Error:      result.Message(),
		DurationMS: elapsed.Milliseconds(),
		CalledAt:   s.now(),
	}
	if err := s.journal.RecordCall(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to journal tool call", zap.String("tool", name), zap.Error(err))
	}
}

// invalidArgument classifies an argument parsing failure.
func invalidArgument(err error) error {
	return model.NewToolError(model.KindInvalidParameter, err.Error(), err)
}

func assertNoUnknownArguments(args map[string]interface{}, allowed map[string]struct{}) error {
	unknown := lo.Filter(lo.Keys(args), func(key string, _ int) bool {
		_, ok := allowed[key]
		return !ok
	})
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	if len(unknown) == 1 {
		return fmt.Errorf("unknown argument: %s", unknown[0])
	}
	return fmt.Errorf("unknown arguments: %s", strings.Join(unknown, ", "))
}

// present reports whether key was supplied with a non-null value.
func present(args map[string]interface{}, key string) (interface{}, bool) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, false
	}
	return raw, true
}

// parseRequiredString requires a non-blank string. The value is returned
// untrimmed.
func parseRequiredString(args map[string]interface{}, key string) (string, error) {
	raw, ok := present(args, key)
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s must be a non-empty string", key)
	}
	return value, nil
}

// parseRequiredText requires a string that may be empty.
func parseRequiredText(args map[string]interface{}, key string) (string, error) {
	raw, ok := present(args, key)
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return value, nil
}

func parseOptionalString(args map[string]interface{}, key, defaultValue string) (string, error) {
	v, err := parseStringPtr(args, key)
	if err != nil || v == nil {
		return defaultValue, err
	}
	return *v, nil
}

func parseStringPtr(args map[string]interface{}, key string) (*string, error) {
	raw, ok := present(args, key)
	if !ok {
		return nil, nil
	}
	value, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string", key)
	}
	return &value, nil
}

func parseOptionalBool(args map[string]interface{}, key string, defaultValue bool) (bool, error) {
	v, err := parseBoolPtr(args, key)
	if err != nil || v == nil {
		return defaultValue, err
	}
	return *v, nil
}

func parseBoolPtr(args map[string]interface{}, key string) (*bool, error) {
	raw, ok := present(args, key)
	if !ok {
		return nil, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return nil, fmt.Errorf("%s must be a boolean", key)
	}
	return &v, nil
}

func parseInteger(value interface{}, field string) (int64, error) {
	switch v := value.(type) {
	case float64:
		if math.Trunc(v) != v {
			return 0, fmt.Errorf("%s must be an integer", field)
		}
		if v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, fmt.Errorf("%s is out of range", field)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", field)
	}
}

func parseOptionalInteger(args map[string]interface{}, key string, defaultValue int64) (int64, error) {
	v, err := parseIntegerPtr(args, key)
	if err != nil || v == nil {
		return defaultValue, err
	}
	return *v, nil
}

func parseIntegerPtr(args map[string]interface{}, key string) (*int64, error) {
	raw, ok := present(args, key)
	if !ok {
		return nil, nil
	}
	v, err := parseInteger(raw, key)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseNumber(value interface{}, field string) (float64, error) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%s must be a finite number", field)
		}
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%s must be a number", field)
	}
}

func parseNumberPtr(args map[string]interface{}, key string) (*float64, error) {
	raw, ok := present(args, key)
	if !ok {
		return nil, nil
	}
	v, err := parseNumber(raw, key)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseRequiredStringSlice(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := present(args, key)
	if !ok {
		return nil, fmt.Errorf("%s is required", key)
	}

	switch typed := raw.(type) {
	case []interface{}:
		out := make([]string, 0, len(typed))
		for idx, item := range typed {
			v, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", key, idx)
			}
			v = strings.TrimSpace(v)
			if v == "" {
				return nil, fmt.Errorf("%s[%d] must be a non-empty string", key, idx)
			}
			out = append(out, v)
		}
		return out, nil
	case []string:
		out := make([]string, 0, len(typed))
		for idx, item := range typed {
			item = strings.TrimSpace(item)
			if item == "" {
				return nil, fmt.Errorf("%s[%d] must be a non-empty string", key, idx)
			}
			out = append(out, item)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}
}

func parseOptionalObject(args map[string]interface{}, key string) (map[string]interface{}, bool, error) {
	raw, ok := present(args, key)
	if !ok {
		return nil, false, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, true, fmt.Errorf("%s must be an object", key)
	}
	return obj, true, nil
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func integerProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

func boolProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

func stringListProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string", "minLength": 1},
		"description": description,
	}
}
