package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/docupdate/internal/types"
)

// statusError maps store and engine errors onto gRPC status codes.
// Validation errors become INVALID_ARGUMENT, lost CAS races ABORTED and
// anything else from the database UNAVAILABLE.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case types.IsValidationError(err):
		code = codes.InvalidArgument
	case errors.Is(err, types.ErrDocumentNotFound):
		code = codes.NotFound
	case errors.Is(err, types.ErrVersionConflict):
		code = codes.Aborted
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		code = codes.Unavailable
	}
	return status.Error(code, err.Error())
}
