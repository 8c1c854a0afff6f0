package mcp

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"mcptoolbox/internal/protocol"
)

// Handler returns the streamable HTTP handler: POST and DELETE on the MCP
// path plus GET /healthz.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware, s.authMiddleware)
		r.Post(s.cfg.Server.MCPPath, s.handlePost)
		r.Delete(s.cfg.Server.MCPPath, s.handleDelete)
	})
	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(s.cfg.Server.AuthToken)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
			resp := newRPCError(nil, protocol.RPCUnauthorized, "unauthorized", protocol.ErrorCodeUnauthorized)
			writeResponse(w, http.StatusUnauthorized, resp)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.Public && !s.limiter.allow(realIP(r, s.trustedProxies)) {
			w.Header().Set("Retry-After", "1")
			resp := newRPCError(nil, protocol.RPCRateLimited, "rate limit exceeded", protocol.ErrorCodeRateLimited)
			writeResponse(w, http.StatusTooManyRequests, resp)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeResponse(w, http.StatusRequestEntityTooLarge,
			newRPCError(nil, protocol.RPCInvalidRequest, "request body too large", "PAYLOAD_TOO_LARGE"))
		return
	}

	req, errResp := parseRequest(body)
	if errResp != nil {
		writeResponse(w, httpStatusFor(errResp), errResp)
		return
	}

	sessionID := strings.TrimSpace(r.Header.Get(protocol.MCPSessionHeader))
	if req.Method == protocol.MethodInitialize {
		sessionID = s.createSession()
		w.Header().Set(protocol.MCPSessionHeader, sessionID)
		s.logger.Info("session created", zap.String("session", sessionID), zap.String("remote", realIP(r, s.trustedProxies)))
	} else {
		if sessionID == "" {
			resp := newRPCError(req.ID, protocol.RPCInvalidRequest, protocol.MCPSessionHeader+" header is required", "MISSING_FIELD")
			writeResponse(w, http.StatusBadRequest, resp)
			return
		}
		if !s.touchSession(sessionID) {
			resp := newRPCError(req.ID, protocol.RPCSessionNotFound, "session not found", protocol.ErrorCodeSessionNotFound)
			writeResponse(w, http.StatusNotFound, resp)
			return
		}
	}

	resp := s.dispatch(withSession(r.Context(), sessionID), req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeResponse(w, httpStatusFor(resp), resp)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.Header.Get(protocol.MCPSessionHeader))
	if sessionID == "" || !s.deleteSession(sessionID) {
		resp := newRPCError(nil, protocol.RPCSessionNotFound, "session not found", protocol.ErrorCodeSessionNotFound)
		writeResponse(w, http.StatusNotFound, resp)
		return
	}
	s.logger.Info("session closed", zap.String("session", sessionID))
	w.WriteHeader(http.StatusNoContent)
}

// Serve blocks while handling HTTP on listener. Cancel ctx to initiate
// graceful shutdown; in-flight requests are allowed to drain for the
// configured grace period.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger.Named("http")),
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		s.runSweeper(sweepCtx)
	}()
	defer func() { <-sweepDone }()

	s.logger.Info("serving MCP over HTTP",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", s.cfg.Server.MCPPath),
		zap.Bool("public", s.cfg.Server.Public),
		zap.Bool("auth", s.cfg.Server.AuthToken != ""),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace())
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			_ = srv.Close()
		}
		<-errCh
		return err
	case err := <-errCh:
		stopSweep()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
