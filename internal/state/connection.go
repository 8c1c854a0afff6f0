package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"mcptoolbox/internal/protocol"
)

// ConnectionFileName is written to the tool home while the HTTP transport
// is serving.
const ConnectionFileName = "connection.json"

// Connection describes how a client reaches a running HTTP server.
type Connection struct {
	Transport string            `json:"transport"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	Session   ConnectionSession `json:"session"`
	// TokenEnv names the variable holding the bearer token. The token itself
	// is never written.
	TokenEnv string `json:"token_env,omitempty"`
	PID      int    `json:"pid"`
}

type ConnectionSession struct {
	UsesMCPSessionID     bool   `json:"uses_mcp_session_id"`
	HeaderName           string `json:"header_name"`
	AssignedOnInitialize bool   `json:"assigned_on_initialize"`
}

// NewConnection builds the connection record for an endpoint.
func NewConnection(mcpURL, protocolVersion string, authenticated bool) Connection {
	headers := map[string]string{
		"MCP-Protocol-Version": protocolVersion,
	}
	conn := Connection{
		Transport: "mcp_streamable_http",
		URL:       mcpURL,
		Headers:   headers,
		Session: ConnectionSession{
			UsesMCPSessionID:     true,
			HeaderName:           protocol.MCPSessionHeader,
			AssignedOnInitialize: true,
		},
		PID: os.Getpid(),
	}
	if authenticated {
		headers["Authorization"] = "Bearer ${SERVER_AUTH_TOKEN}"
		conn.TokenEnv = "SERVER_AUTH_TOKEN"
	}
	return conn
}

// WriteConnection writes conn to <dir>/connection.json and returns the path.
func WriteConnection(dir string, conn Connection) (string, error) {
	data, err := json.MarshalIndent(conn, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ConnectionFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// ReadConnection loads connection.json from dir.
func ReadConnection(dir string) (Connection, error) {
	var conn Connection
	data, err := os.ReadFile(filepath.Join(dir, ConnectionFileName))
	if err != nil {
		return conn, err
	}
	err = json.Unmarshal(data, &conn)
	return conn, err
}

// RemoveConnection deletes connection.json. A missing file is not an error.
func RemoveConnection(dir string) error {
	err := os.Remove(filepath.Join(dir, ConnectionFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
