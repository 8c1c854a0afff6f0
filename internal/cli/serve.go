package cli

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcptoolbox/internal/config"
	"mcptoolbox/internal/protocol"
	"mcptoolbox/internal/state"
)

type serveFlags struct {
	transport string
	listen    string
	mcpPath   string
	public    bool
	authToken string
}

func (a *app) newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools over stdio or streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.transport, "transport", config.TransportStdio, "transport: stdio|http")
	cmd.Flags().StringVar(&f.listen, "listen", protocol.DefaultListenAddr, "host:port to listen on (http)")
	cmd.Flags().StringVar(&f.mcpPath, "mcp-path", protocol.DefaultMCPPath, "HTTP path for the MCP endpoint")
	cmd.Flags().BoolVar(&f.public, "public", false, "bind all interfaces and rate limit per client IP (requires --auth-token)")
	cmd.Flags().StringVar(&f.authToken, "auth-token", "", "bearer token required on HTTP requests")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, f serveFlags) error {
	// Precedence: flags > env > file > defaults
	flags := cmd.Flags()
	overrides := &config.Overrides{}
	if flags.Changed("transport") {
		overrides.Transport = &f.transport
	}
	if flags.Changed("listen") {
		overrides.ServerListen = &f.listen
	}
	if flags.Changed("mcp-path") {
		overrides.ServerMCPPath = &f.mcpPath
	}
	if flags.Changed("public") {
		overrides.ServerPublic = &f.public
	}
	if flags.Changed("auth-token") {
		overrides.ServerAuthToken = &f.authToken
	}
	cfg, err := a.loadConfig(cmd, overrides, false)
	if err != nil {
		return err
	}
	if cfg.Server.Public && !flags.Changed("listen") {
		cfg.Server.Listen = publicListenAddr(cfg.Server.Listen)
	}

	logger, err := a.newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(cfg.ToolHome, 0o755); err != nil {
		return withExitCode(ExitToolHomeInaccessible, fmt.Errorf("tool home inaccessible: %w", err))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeJournal(journal, logger)

	server := newServer(cfg, logger, journal)
	logger.Info("mcp-toolbox starting",
		zap.String("version", version),
		zap.String("transport", cfg.Server.Transport),
		zap.Int("tools", len(server.Tools())),
		zap.Bool("journal", journal != nil),
	)

	if cfg.Server.Transport == config.TransportStdio {
		return server.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	listener, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return withExitCode(ExitBindFailure, fmt.Errorf("server bind failure: %w", err))
	}
	mcpURL := "http://" + displayAddress(cfg.Server.Listen, listener.Addr().String()) + cfg.Server.MCPPath
	if !a.flags.Quiet && !a.flags.JSON {
		printEndpoint(cmd.OutOrStdout(), cfg, mcpURL, len(server.Tools()))
	}
	conn := state.NewConnection(mcpURL, cfg.Server.ProtocolVersion, cfg.Server.AuthToken != "")
	if connPath, err := state.WriteConnection(cfg.ToolHome, conn); err != nil {
		logger.Warn("writing connection file failed", zap.Error(err))
	} else {
		logger.Debug("wrote connection file", zap.String("path", connPath))
		defer func() {
			if err := state.RemoveConnection(cfg.ToolHome); err != nil {
				logger.Warn("removing connection file failed", zap.Error(err))
			}
		}()
	}
	logger.Info("serving MCP over http", zap.String("url", mcpURL), zap.Bool("public", cfg.Server.Public))
	return server.Serve(ctx, listener)
}

func printEndpoint(w io.Writer, cfg *config.Config, mcpURL string, tools int) {
	t := newTheme(w, false)
	auth := "none"
	if cfg.Server.AuthToken != "" {
		auth = "Bearer <token>"
	}
	fmt.Fprintf(w, "mcp-toolbox %s serving %d tools\n", version, tools)
	fmt.Fprintln(w, t.field("URL", t.paint(t.link, mcpURL)))
	fmt.Fprintln(w, t.field("Auth", auth))
	fmt.Fprintln(w, t.field("Protocol", cfg.Server.ProtocolVersion))
	fmt.Fprintln(w, t.field("Session", protocol.MCPSessionHeader+" (assigned after initialize)"))
	if cfg.Server.Public {
		fmt.Fprintln(w, t.paint(t.warn, "public:"), "listening on all interfaces; clients are rate limited per IP")
	}
}

// publicListenAddr rebinds a loopback listen address to all interfaces,
// keeping the port.
func publicListenAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "localhost" {
		return net.JoinHostPort("0.0.0.0", port)
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return net.JoinHostPort("0.0.0.0", port)
	}
	return listen
}

// displayAddress reports the configured host with the port the listener
// actually bound, so ":0" listeners print a usable address.
func displayAddress(configured, resolved string) string {
	port := extractPortFromAddress(resolved)
	if port == "" {
		if configured == "" {
			return protocol.DefaultListenAddr
		}
		return configured
	}
	host, _, err := net.SplitHostPort(configured)
	if err != nil || host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func extractPortFromAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if _, port, err := net.SplitHostPort(addr); err == nil {
		if isPort(port) {
			return port
		}
		return ""
	}
	idx := strings.LastIndex(addr, ":")
	if idx < 0 || !isPort(addr[idx+1:]) {
		return ""
	}
	return addr[idx+1:]
}

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
