package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"go.uber.org/zap"
)

// ServeStdio reads newline-delimited JSON-RPC messages from in and writes
// one response line per request to out. It returns at EOF or when ctx is
// done. Requests are handled one at a time.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadBytes('\n')
			if len(bytes.TrimSpace(line)) > 0 {
				select {
				case lines <- line:
				case <-ctx.Done():
					readErr <- nil
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				readErr <- err
				return
			}
		}
	}()

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	sessionCtx := withSession(ctx, stdioSessionID)
	s.logger.Info("serving MCP over stdio")

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			resp := s.handleLine(sessionCtx, line)
			if resp == nil {
				continue
			}
			if err := enc.Encode(resp); err != nil {
				return err
			}
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) *rpcResponse {
	req, errResp := parseRequest(line)
	if errResp != nil {
		s.logger.Debug("rejected stdio message", zap.String("error", errResp.Error.Message))
		return errResp
	}
	return s.dispatch(ctx, req)
}
