package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
)

// getSimpleText and getPassword are indirections swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

// askPassword returns the password as a string and wipes the raw bytes.
func (a *App) askPassword(prompt string) (string, error) {
	pw, err := getPassword(prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) say(msg string) {
	fmt.Fprintln(a.out, msg)
}

func (a *App) printUser(u *pb.User) {
	if u == nil {
		return
	}
	fmt.Fprintf(a.out, "ID:       %s\nEmail:    %s\nRole:     %s\nName:     %s %s\nVerified: %t\n",
		u.ID, u.Email, u.Role, u.FirstName, u.LastName, u.IsVerified)
}

func (a *App) Register(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	first, err := a.ask("Enter first name (optional)")
	if err != nil {
		return err
	}
	last, err := a.ask("Enter last name (optional)")
	if err != nil {
		return err
	}
	password, err := a.askPassword("Enter password")
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.api.Register(ctx, &pb.RegisterRequest{Email: email, Password: password, FirstName: first, LastName: last})
	if err != nil {
		return err
	}
	a.say(resp.Message)
	return nil
}

func (a *App) Verify(ctx context.Context) error {
	code, err := a.ask("Enter verification code")
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	msg, err := a.api.VerifyEmail(ctx, code)
	if err != nil {
		return err
	}
	a.say(msg)
	return nil
}

func (a *App) Resend(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	msg, err := a.api.ResendOTP(ctx, email)
	if err != nil {
		return err
	}
	a.say(msg)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	password, err := a.askPassword("Enter password")
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	u, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.email = u.Email
	a.say("Login successful")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.api.Refresh(ctx); err != nil {
		return err
	}
	a.say("Tokens refreshed")
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	u, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	current, err := a.askPassword("Enter current password")
	if err != nil {
		return err
	}
	next, err := a.askPassword("Enter new password")
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	msg, err := a.api.ChangePassword(ctx, current, next)
	if err != nil {
		return err
	}
	a.email = ""
	a.say(msg + ". Please log in again.")
	return nil
}

func (a *App) Forgot(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	msg, err := a.api.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}
	a.say(msg)
	return nil
}

func (a *App) Reset(ctx context.Context) error {
	token, err := a.ask("Enter reset token")
	if err != nil {
		return err
	}
	password, err := a.askPassword("Enter new password")
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	msg, err := a.api.ResetPassword(ctx, token, password)
	if err != nil {
		return err
	}
	a.say(msg)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	msg, err := a.api.Logout(ctx)
	if err != nil {
		return err
	}
	a.email = ""
	a.say(msg)
	return nil
}
