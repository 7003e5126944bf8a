package grpc

import (
	"context"
	"strings"

	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toPBUser(u services.PublicUser) *pb.User {
	return &pb.User{
		ID:           u.ID,
		Email:        u.Email,
		Role:         string(u.Role),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		ProfileImage: u.ProfileImage,
		IsVerified:   u.IsVerified,
	}
}

func statusOK(msg string) *pb.StatusResponse {
	return &pb.StatusResponse{Message: msg}
}

// callerID returns the authenticated user id; protected methods always have one.
func callerID(ctx context.Context) (string, error) {
	id, found := IdentityFromContext(ctx)
	if !found {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return id.UserID, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *pb.PingRequest) (*pb.PingResponse, error) {
	return &pb.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *pb.RegisterRequest) (*pb.RegisterResponse, error) {
	u, err := s.sessions.Register(ctx, services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &pb.RegisterResponse{
		User:    toPBUser(*u),
		Message: "Registration successful. Please check your email for the verification code.",
	}, nil
}

func (s *GRPCServer) VerifyEmail(ctx context.Context, req *pb.VerifyEmailRequest) (*pb.StatusResponse, error) {
	if err := s.sessions.VerifyEmail(ctx, req.Code); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return statusOK("Email verified successfully"), nil
}

func (s *GRPCServer) ResendOTP(ctx context.Context, req *pb.ResendOTPRequest) (*pb.StatusResponse, error) {
	if err := s.sessions.ResendOTP(ctx, req.Email); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return statusOK("A new verification code has been sent"), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.LoginResponse, error) {
	res, err := s.sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &pb.LoginResponse{
		User:         toPBUser(res.User),
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *pb.RefreshTokenRequest) (*pb.RefreshTokenResponse, error) {
	pair, err := s.sessions.RefreshToken(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &pb.RefreshTokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *pb.LogoutRequest) (*pb.StatusResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Logout(ctx, userID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return statusOK("Logged out successfully"), nil
}

func (s *GRPCServer) ForgotPassword(ctx context.Context, req *pb.ForgotPasswordRequest) (*pb.StatusResponse, error) {
	if err := s.sessions.ForgotPassword(ctx, req.Email); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return statusOK("If that email is registered, a reset link has been sent"), nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *pb.ResetPasswordRequest) (*pb.StatusResponse, error) {
	if err := s.sessions.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return statusOK("Password has been reset"), nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *pb.ChangePasswordRequest) (*pb.StatusResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return statusOK("Password changed successfully"), nil
}

func (s *GRPCServer) GetProfile(ctx context.Context, req *pb.GetProfileRequest) (*pb.GetProfileResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.sessions.GetProfile(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &pb.GetProfileResponse{User: toPBUser(*u)}, nil
}
