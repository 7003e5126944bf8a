package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	s := &GRPCServer{logger: logging.Nop{}}
	ctx := context.Background()

	tests := []struct {
		name    string
		err     error
		code    codes.Code
		message string
	}{
		{"conflict", common.Conflict("Email already exists"), codes.AlreadyExists, "Email already exists"},
		{"unauthorized", common.Unauthorized("Invalid credentials"), codes.Unauthenticated, "Invalid credentials"},
		{"forbidden", common.Forbidden("Please verify your email first"), codes.PermissionDenied, "Please verify your email first"},
		{"not found", common.NotFound("User not found"), codes.NotFound, "User not found"},
		{"bad request", common.BadRequest("Invalid request"), codes.InvalidArgument, "Invalid request"},
		{"wrapped domain", fmt.Errorf("outer: %w", common.NotFound("User not found")), codes.NotFound, "User not found"},
		{"internal hidden", errors.New("db error: connection refused"), codes.Internal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := status.Convert(s.toStatus(ctx, tt.err))
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.message, st.Message())
		})
	}

	assert.NoError(t, s.toStatus(ctx, nil))
}

func TestToStatus_ExposeInternal(t *testing.T) {
	s := &GRPCServer{logger: logging.Nop{}, exposeInternal: true}

	st := status.Convert(s.toStatus(context.Background(), errors.New("db error: boom")))
	assert.Equal(t, codes.Internal, st.Code())
	assert.Equal(t, "db error: boom", st.Message())
}

func TestToStatus_ContextErrors(t *testing.T) {
	s := &GRPCServer{logger: logging.Nop{}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := status.Convert(s.toStatus(ctx, ctx.Err()))
	assert.Equal(t, codes.Canceled, st.Code())
}
