package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	conn   *grpc.ClientConn
	client pb.AuthServiceClient
	store  TokenStore

	mu      sync.Mutex
	session Session
}

var _ Client = (*GRPCClient)(nil)

// NewGRPCClient dials target lazily. Extra dial options are appended after
// the defaults (insecure transport, token interceptor).
func NewGRPCClient(target string, store TokenStore, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{store: store}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewAuthServiceClient(conn)
	return c, nil
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *GRPCClient) setSession(ctx context.Context, s Session) error {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return c.store.Save(ctx, s)
}

func (c *GRPCClient) clearSession(ctx context.Context) error {
	c.mu.Lock()
	c.session = Session{}
	c.mu.Unlock()
	return c.store.Clear(ctx)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

// accessTokenInterceptor attaches the access token and, when the server
// reports it expired, rotates the pair once and retries the call.
func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	sess := c.current()
	if sess.AccessToken == "" || method == pb.AuthService_RefreshToken_FullMethodName {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withAccessToken(ctx, sess.AccessToken), method, req, reply, cc, opts...)
	if !isTokenExpired(err) || sess.RefreshToken == "" {
		return err
	}

	if err := c.Refresh(ctx); err != nil {
		return err
	}

	return invoker(withAccessToken(ctx, c.current().AccessToken), method, req, reply, cc, opts...)
}

func (c *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return &ServerError{Code: st.Code(), Message: st.Message()}
	}
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := c.client.Ping(ctx, &pb.PingRequest{})
	if err != nil {
		return c.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

// Restore loads a previously saved session and returns its email.
func (c *GRPCClient) Restore(ctx context.Context) (string, error) {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()
	return sess.Email, nil
}

// LoggedIn reports whether a token pair is held.
func (c *GRPCClient) LoggedIn() bool {
	return c.current().RefreshToken != ""
}

func (c *GRPCClient) Register(ctx context.Context, in *pb.RegisterRequest) (*pb.RegisterResponse, error) {
	resp, err := c.client.Register(ctx, in)
	if err != nil {
		return nil, c.mapError(err)
	}
	return resp, nil
}

func (c *GRPCClient) VerifyEmail(ctx context.Context, code string) (string, error) {
	resp, err := c.client.VerifyEmail(ctx, &pb.VerifyEmailRequest{Code: code})
	if err != nil {
		return "", c.mapError(err)
	}
	return resp.Message, nil
}

func (c *GRPCClient) ResendOTP(ctx context.Context, email string) (string, error) {
	resp, err := c.client.ResendOTP(ctx, &pb.ResendOTPRequest{Email: email})
	if err != nil {
		return "", c.mapError(err)
	}
	return resp.Message, nil
}

func (c *GRPCClient) Login(ctx context.Context, email, password string) (*pb.User, error) {
	resp, err := c.client.Login(ctx, &pb.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, c.mapError(err)
	}

	sess := Session{Email: resp.User.Email, AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := c.setSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return resp.User, nil
}

// Refresh rotates the token pair. A rejected refresh token ends the session.
func (c *GRPCClient) Refresh(ctx context.Context) error {
	sess := c.current()
	if sess.RefreshToken == "" {
		return ErrNotLoggedIn
	}

	resp, err := c.client.RefreshToken(ctx, &pb.RefreshTokenRequest{RefreshToken: sess.RefreshToken})
	if err != nil {
		mapped := c.mapError(err)
		if errors.Is(mapped, ErrUnauthorized) {
			_ = c.clearSession(ctx)
		}
		return mapped
	}

	sess.AccessToken = resp.AccessToken
	sess.RefreshToken = resp.RefreshToken
	if err := c.setSession(ctx, sess); err != nil {
		return fmt.Errorf("session saving error: %w", err)
	}
	return nil
}

// Logout revokes all refresh tokens server-side and forgets the local session.
func (c *GRPCClient) Logout(ctx context.Context) (string, error) {
	if !c.LoggedIn() {
		return "", ErrNotLoggedIn
	}
	resp, err := c.client.Logout(ctx, &pb.LogoutRequest{})
	if err != nil {
		return "", c.mapError(err)
	}
	if err := c.clearSession(ctx); err != nil {
		return "", fmt.Errorf("session clearing error: %w", err)
	}
	return resp.Message, nil
}

func (c *GRPCClient) ForgotPassword(ctx context.Context, email string) (string, error) {
	resp, err := c.client.ForgotPassword(ctx, &pb.ForgotPasswordRequest{Email: email})
	if err != nil {
		return "", c.mapError(err)
	}
	return resp.Message, nil
}

func (c *GRPCClient) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	resp, err := c.client.ResetPassword(ctx, &pb.ResetPasswordRequest{Token: token, NewPassword: newPassword})
	if err != nil {
		return "", c.mapError(err)
	}
	return resp.Message, nil
}

// ChangePassword also ends the local session: the server revokes every
// refresh token of the account.
func (c *GRPCClient) ChangePassword(ctx context.Context, currentPassword, newPassword string) (string, error) {
	if !c.LoggedIn() {
		return "", ErrNotLoggedIn
	}
	resp, err := c.client.ChangePassword(ctx, &pb.ChangePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword})
	if err != nil {
		return "", c.mapError(err)
	}
	if err := c.clearSession(ctx); err != nil {
		return "", fmt.Errorf("session clearing error: %w", err)
	}
	return resp.Message, nil
}

func (c *GRPCClient) Profile(ctx context.Context) (*pb.User, error) {
	if !c.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	resp, err := c.client.GetProfile(ctx, &pb.GetProfileRequest{})
	if err != nil {
		return nil, c.mapError(err)
	}
	return resp.User, nil
}
