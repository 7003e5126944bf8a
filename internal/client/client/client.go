package client

import (
	"context"

	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
)

// Client is the transport contract used by the CLI.
type Client interface {
	Close() error
	LoggedIn() bool
	Ping(ctx context.Context) error
	Restore(ctx context.Context) (string, error)
	Register(ctx context.Context, in *pb.RegisterRequest) (*pb.RegisterResponse, error)
	VerifyEmail(ctx context.Context, code string) (string, error)
	ResendOTP(ctx context.Context, email string) (string, error)
	Login(ctx context.Context, email, password string) (*pb.User, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword string) (string, error)
	Profile(ctx context.Context) (*pb.User, error)
}
