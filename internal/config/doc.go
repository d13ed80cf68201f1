// Package config loads the server configuration.
//
// Settings are resolved in this order, later sources winning:
//
//  1. Defaults
//  2. YAML file (--config or MCP_CALENDAR_CONFIG)
//  3. Environment variables, after an optional .env file is loaded
//  4. Command-line flags that were set explicitly
//
// Example file:
//
//	transport: http
//	http:
//	  host: 127.0.0.1
//	  port: 3000
//	script:
//	  timeout: 45s
//	fanout:
//	  concurrency: 4
//	  limit: 50
//	  report_failures: false
//	calendar:
//	  default: Privat
//	  work: Arbeit
//	language: de
package config
