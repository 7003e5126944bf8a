package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

const (
	SubjectVerify   = "Verify Account"
	SubjectResend   = "New OTP Code"
	SubjectReset    = "Reset Password"
	resetPathSuffix = "/reset-password"
)

var verifyTmpl = template.Must(template.New("verify").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e0e0e0; border-radius: 8px;">
  <h2 style="color: #372117; text-align: center;">Verification Code</h2>
  <p style="text-align: center;">Please use the following code to verify your account:</p>
  <div style="background-color: #f4bc58; padding: 15px; border-radius: 8px; text-align: center; margin: 20px 0;">
    <span style="font-size: 32px; font-weight: bold; letter-spacing: 5px; color: #372117;">{{.Code}}</span>
  </div>
  <p style="color: #999; font-size: 12px; text-align: center;">This code will expire in {{.Minutes}} minutes.</p>
</div>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<div style="font-family: sans-serif; padding: 20px;">
  <h2>Password Reset Request</h2>
  <p>Click the button below to reset your password:</p>
  <a href="{{.URL}}" style="display: inline-block; background-color: #f4bc58; color: #372117; padding: 12px 24px; text-decoration: none; border-radius: 50px; font-weight: bold;">Reset Password</a>
  <p style="color: #999; margin-top: 20px;">If you didn't request this, please ignore this email.</p>
</div>`))

// VerificationBody renders the one-time code message.
func VerificationBody(code string, validity time.Duration) (string, error) {
	var buf bytes.Buffer
	err := verifyTmpl.Execute(&buf, struct {
		Code    string
		Minutes int
	}{code, int(validity / time.Minute)})
	if err != nil {
		return "", fmt.Errorf("render verification email: %w", err)
	}
	return buf.String(), nil
}

// ResetURL builds <frontendURL>/reset-password?token=<token>.
func ResetURL(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + resetPathSuffix + "?token=" + url.QueryEscape(token)
}

// ResetBody renders the password reset message linking to the frontend.
func ResetBody(frontendURL, token string) (string, error) {
	var buf bytes.Buffer
	if err := resetTmpl.Execute(&buf, struct{ URL string }{ResetURL(frontendURL, token)}); err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return buf.String(), nil
}
