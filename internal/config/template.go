package config

// DefaultTOML is the template written by "mcp-toolbox config init". Secrets
// are better kept in the environment (FIGMA_API_KEY, SERVER_AUTH_TOKEN) or
// in .env.local.
const DefaultTOML = `# mcp-toolbox configuration.
# Precedence: flags > environment > this file > defaults.

# tool_home = "~/.zerolab/mcp-toolbox"
# cache_dir = "~/.zerolab/mcp-toolbox/cache"

enable_file_ops_tools = true
enable_figma_tools = true
enable_markdown_tools = true

[figma]
# api_key = ""
base_url = "https://api.figma.com/v1"
timeout_seconds = 30
retries = 3

[server]
transport = "stdio"
listen = "127.0.0.1:8087"
mcp_path = "/mcp"
protocol_version = "2025-03-26"
public = false
# auth_token = ""
rate_limit_rps = 60
rate_limit_burst = 20
trusted_proxies = ["127.0.0.1/32", "::1/128"]
session_ttl_seconds = 86400
shutdown_grace_seconds = 5

[log]
level = "info"
json = false

[journal]
enabled = true
# path = "~/.zerolab/mcp-toolbox/journal.sqlite"
`
