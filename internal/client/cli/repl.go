package cli

import (
	"bufio"
	"context"
	"fmt"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, args []string) error
	Token(ctx context.Context, args []string) error
	Progress(ctx context.Context) error
	Documents(ctx context.Context) error
	Upload(ctx context.Context, args []string) error
	Submit(ctx context.Context, args []string) error
	Notifications(ctx context.Context) error
	Call(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
}

// runREPL starts a read–eval–print loop for portalctl.
//
// It reads a line from the provided scanner, splits it with splitFields,
// and dispatches on the first token. The loop exits on scanner EOF or when
// the user types "exit" or "quit".
//
//	Not logged in:
//	  - login [link|token]     redeem a login link
//	  - token                  paste an access token (no echo)
//	  - call <Method> [k=v...] call a public method
//
//	Logged in:
//	  - progress               current step and what is missing
//	  - docs                   list documents
//	  - upload <type> <path>   upload a file for a document slot
//	  - submit [step]          submit uploaded documents for review
//	  - notifications          latest notifications
//	  - call <Method> [k=v...] call any method; k:=json sends raw JSON
//	  - logout
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("portal %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts, err := splitFields(scanner.Text())
		if err != nil {
			printlnFn("Error:", err)
			continue
		}
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: progress, docs, upload, submit, notifications, call, logout, exit")
			} else {
				printlnFn("Available commands: login, token, call, exit")
			}

		case "login":
			err = a.Login(ctx, args)

		case "token":
			err = a.Token(ctx, args)

		case "progress":
			err = a.Progress(ctx)

		case "docs":
			err = a.Documents(ctx)

		case "upload":
			err = a.Upload(ctx, args)

		case "submit":
			err = a.Submit(ctx, args)

		case "notifications":
			err = a.Notifications(ctx)

		case "call":
			err = a.Call(ctx, args)

		case "logout":
			err = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
