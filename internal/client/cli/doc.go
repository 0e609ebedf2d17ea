// Package cli provides portalctl, the interactive command-line client for
// the onboarding portal.
//
// A session starts by redeeming a login link (students) or by pasting an
// access token (operators). Typed commands cover the common student flow:
// progress, document listing and upload, submission for review and
// notifications. Any other API method can be reached with "call".
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
