package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var kindCodes = map[common.Kind]codes.Code{
	common.KindConflict:     codes.AlreadyExists,
	common.KindUnauthorized: codes.Unauthenticated,
	common.KindForbidden:    codes.PermissionDenied,
	common.KindNotFound:     codes.NotFound,
	common.KindBadRequest:   codes.InvalidArgument,
}

// toStatus converts a service error to a gRPC status. Domain errors keep
// their caller-facing message; anything else becomes codes.Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var de *common.Error
	if errors.As(err, &de) {
		if code, ok := kindCodes[de.Kind]; ok {
			return status.Error(code, de.Message)
		}
	}

	switch ctx.Err() {
	case context.Canceled:
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}

	s.logger.Error(ctx, "internal error", "error", err)
	if s.exposeInternal {
		return status.Error(codes.Internal, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}
