package mcp

import (
	"encoding/json"
	"net/http"

	"mcptoolbox/internal/protocol"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification reports whether the request carries no id and therefore
// expects no response.
func (r rpcRequest) isNotification() bool {
	return len(r.ID) == 0
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    *rpcErrorData `json:"data,omitempty"`
}

type rpcErrorData struct {
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

type validationError struct {
	message       string
	canonicalCode string
}

func (e validationError) Error() string {
	return e.message
}

func newResult(id json.RawMessage, result interface{}) *rpcResponse {
	return &rpcResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func newRPCError(id json.RawMessage, code int, message, canonicalCode string) *rpcResponse {
	resp := &rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	}
	if canonicalCode != "" {
		resp.Error.Data = &rpcErrorData{Code: canonicalCode, Retryable: code == protocol.RPCRateLimited}
	}
	return resp
}

// parseRequest decodes one JSON-RPC message. The returned response is set
// when the message cannot be dispatched.
func parseRequest(raw []byte) (rpcRequest, *rpcResponse) {
	var req rpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return rpcRequest{}, newRPCError(nil, protocol.RPCParseError, "parse error", "INVALID_JSON")
	}
	if req.JSONRPC != "2.0" {
		return req, newRPCError(req.ID, protocol.RPCInvalidRequest, `jsonrpc must be "2.0"`, "INVALID_FIELD")
	}
	if req.Method == "" {
		return req, newRPCError(req.ID, protocol.RPCInvalidRequest, "method is required", "MISSING_FIELD")
	}
	return req, nil
}

// httpStatusFor maps a response onto the HTTP status of the streamable
// transport. Tool failures are in-band and always 200.
func httpStatusFor(resp *rpcResponse) int {
	if resp == nil || resp.Error == nil {
		return http.StatusOK
	}
	switch resp.Error.Code {
	case protocol.RPCParseError, protocol.RPCInvalidRequest:
		return http.StatusBadRequest
	case protocol.RPCUnauthorized:
		return http.StatusUnauthorized
	case protocol.RPCSessionNotFound:
		return http.StatusNotFound
	case protocol.RPCRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusOK
	}
}

func writeResponse(w http.ResponseWriter, status int, resp *rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}
