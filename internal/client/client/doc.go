// Package client is portalctl's connection to the portal gRPC API.
//
// The portal service has no generated stubs: every method takes and
// returns a google.protobuf.Struct, so GRPCClient exposes a single Call
// that sends a map and returns a map. The access token is attached to every
// outgoing call by a unary interceptor; ExchangeLoginLink stores the token
// it receives.
//
// Errors
//
// Transport and auth failures are mapped onto ErrUnavailable and
// ErrUnauthorized; other status errors keep the server's message.
package client
