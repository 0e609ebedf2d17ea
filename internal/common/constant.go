// Package common contains shared constants and sentinel errors used across
// the portal components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound and outbound requests.
const AccessTokenHeaderName = "access_token"

// RelaySecretHeaderName carries the shared secret on relay webhook calls.
const RelaySecretHeaderName = "X-Relay-Secret"

// PortalServiceName is the fully qualified gRPC service shared by the
// server and portalctl.
const PortalServiceName = "portal.v1.PortalService"
