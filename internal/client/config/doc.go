// Package config loads runtime configuration for portalctl.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. PORTALCTL_SERVER_ADDR, PORTALCTL_REQUEST_TIMEOUT,
//     PORTALCTL_ACCESS_TOKEN and PORTALCTL_SECRET_KEY environment variables.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the portal gRPC endpoint
//	-t int      request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "10s"
//	}
package config
