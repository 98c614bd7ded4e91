package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

var grpcCodes = map[Code]codes.Code{
	CodeUnauthorized:    codes.Unauthenticated,
	CodeInvalidInput:    codes.InvalidArgument,
	CodeAlreadySwiped:   codes.AlreadyExists,
	CodeQuotaExceeded:   codes.ResourceExhausted,
	CodeProfileNotFound: codes.NotFound,
	CodeUnavailable:     codes.Unavailable,
}

// Map converts service/repo errors into gRPC status errors.
// Context errors are checked first so an abandoned request is reported as
// such even when the storage layer wrapped it.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && CodeOf(err) == "" {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	case errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")
	}

	var coded *Error
	if errors.As(err, &coded) {
		c, ok := grpcCodes[coded.Code]
		if !ok {
			c = codes.Internal
		}
		if coded.Code == CodeUnavailable {
			// storage details stay in the logs
			return status.Error(c, string(CodeUnavailable)+": temporarily unavailable, retry")
		}
		return status.Error(c, coded.Error())
	}

	return status.Error(codes.Internal, err.Error())
}

// InvalidArgument creates a gRPC InvalidArgument error.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, string(CodeInvalidInput)+": "+msg)
}

// Unauthorized creates a gRPC Unauthenticated error.
func Unauthorized(msg string) error {
	return status.Error(codes.Unauthenticated, string(CodeUnauthorized)+": "+msg)
}
