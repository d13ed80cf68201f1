// Package server holds the state shared by the MCP tools and the HTTP side
// of the server.
//
// # Key Components
//
// ServerContext owns the Calendar client, the configuration, the translator
// for suggestions and the optional metrics and audit logger. Shutdown cancels
// its context, which terminates every script still running.
//
// HTTPServer serves the MCP server over streamable HTTP on /mcp next to the
// health endpoints (/health, /healthz, /readyz, /healthz/detailed). Its
// SessionIDManager issues the Mcp-Session-Id values, validates them on each
// request and expires sessions that stay idle. Shutdown terminates every
// session before draining in-flight requests.
//
// MetricsServer exposes Prometheus metrics on a separate address.
//
// ReachableEndpoints lists the URLs the HTTP endpoint can be reached at,
// localhost first, then Tailscale, Wi-Fi and Ethernet, for the startup banner.
package server
