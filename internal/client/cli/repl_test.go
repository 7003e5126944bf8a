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
	calls    []string
	failOn   string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }

func (f *fakeExec) do(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failOn {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeExec) Register(ctx context.Context) error { return f.do("register") }
func (f *fakeExec) Verify(ctx context.Context) error   { return f.do("verify") }
func (f *fakeExec) Resend(ctx context.Context) error   { return f.do("resend") }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.do("login")
}
func (f *fakeExec) Refresh(ctx context.Context) error        { return f.do("refresh") }
func (f *fakeExec) Profile(ctx context.Context) error        { return f.do("profile") }
func (f *fakeExec) ChangePassword(ctx context.Context) error { return f.do("change-password") }
func (f *fakeExec) Forgot(ctx context.Context) error         { return f.do("forgot") }
func (f *fakeExec) Reset(ctx context.Context) error          { return f.do("reset") }
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.do("logout")
}

// silence captures printlnFn output for the duration of t.
func silence(t *testing.T) *[]string {
	t.Helper()
	orig := printlnFn
	t.Cleanup(func() { printlnFn = orig })

	var lines []string
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	silence(t)

	input := strings.Join([]string{
		"help",
		"register",
		"verify",
		"resend",
		"login",
		"",
		"profile",
		"refresh",
		"change-password",
		"forgot",
		"reset",
		"logout",
		"exit",
		"login",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{
		"register", "verify", "resend", "login", "profile", "refresh",
		"change-password", "forgot", "reset", "logout",
	}, exec.calls)
}

func TestRunREPL_ReportsErrorsAndUnknown(t *testing.T) {
	lines := silence(t)

	exec := &fakeExec{failOn: "verify"}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("verify\nfrobnicate\nquit\n")))

	assert.Contains(t, *lines, "Error: verify failed")
	assert.Contains(t, *lines, "Unknown command: frobnicate")
	assert.Contains(t, *lines, "Bye!")
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	silence(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("forgot")))

	assert.Equal(t, []string{"forgot"}, exec.calls)
}

func TestRunREPL_HelpDependsOnLogin(t *testing.T) {
	lines := silence(t)

	runREPL(context.Background(), &fakeExec{loggedIn: true}, func() string { return "" }, bufio.NewReader(strings.NewReader("help\n")))
	assert.Contains(t, *lines, "Available commands: profile, refresh, change-password, logout, exit")
}
