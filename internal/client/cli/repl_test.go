package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  [][]string
	err   error
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return f.err
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(_ context.Context, args []string) error {
	f.loggedIn = true
	return f.record("login", args)
}
func (f *fakeExec) Token(_ context.Context, args []string) error {
	f.loggedIn = true
	return f.record("token", args)
}
func (f *fakeExec) Progress(context.Context) error      { return f.record("progress", nil) }
func (f *fakeExec) Documents(context.Context) error     { return f.record("docs", nil) }
func (f *fakeExec) Notifications(context.Context) error { return f.record("notifications", nil) }
func (f *fakeExec) Upload(_ context.Context, args []string) error {
	return f.record("upload", args)
}
func (f *fakeExec) Submit(_ context.Context, args []string) error {
	return f.record("submit", args)
}
func (f *fakeExec) Call(_ context.Context, args []string) error { return f.record("call", args) }
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	out := captureOutput(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login https://portal.example.com/auth/link?token=abc",
		"help",
		"",
		"progress",
		"docs",
		"upload passport ./scan.pdf",
		"submit 3",
		"notifications",
		`call RejectStep user_id=u1 reason="blurry scan"`,
		"foobar",
		"logout",
		"exit",
		"progress",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"login", "progress", "docs", "upload", "submit", "notifications", "call", "logout"}, exec.calls)
	assert.Equal(t, []string{"https://portal.example.com/auth/link?token=abc"}, exec.args[0])
	assert.Equal(t, []string{"passport", "./scan.pdf"}, exec.args[3])
	assert.Equal(t, []string{"3"}, exec.args[4])
	assert.Equal(t, []string{"RejectStep", "user_id=u1", "reason=blurry scan"}, exec.args[6])

	assert.Contains(t, *out, "Available commands: login, token, call, exit")
	assert.Contains(t, *out, "Available commands: progress, docs, upload, submit, notifications, call, logout, exit")
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Contains(t, *out, "Bye!")
}

func TestRunREPL_PrintsErrorsAndContinues(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{err: errors.New("FailedPrecondition: step not reached yet")}
	input := strings.NewReader("progress\n\"unterminated\nquit\n")
	runREPL(context.Background(), exec, func() string { return "(x)" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"progress"}, exec.calls)
	assert.Contains(t, *out, "Error: FailedPrecondition: step not reached yet")
	assert.Contains(t, *out, "Error: unterminated quote")
	assert.Contains(t, *out, "portal (x)>")
}

func TestRunREPL_EOFStops(t *testing.T) {
	captureOutput(t)
	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("docs")))
	assert.Equal(t, []string{"docs"}, exec.calls)
}
