package vault

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dytallix.io/pqcwallet/address"
	"dytallix.io/pqcwallet/keystore"
)

// mapErr translates keystore-layer errors to gRPC status codes.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, keystore.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, keystore.ErrExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, keystore.ErrMalformed),
		errors.Is(err, keystore.ErrInvalidParams),
		errors.Is(err, address.ErrInvalid),
		errors.Is(err, address.ErrEmptyPublicKey):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, keystore.ErrUnsupportedVersion):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, keystore.ErrIntegrity):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// mapRPC translates gRPC status codes back to keystore-layer errors, so a
// remote vault satisfies the same error contract as a local store.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return keystore.ErrNotFound
	case codes.AlreadyExists:
		return keystore.ErrExists
	case codes.InvalidArgument:
		return keystore.ErrMalformed
	case codes.FailedPrecondition:
		return keystore.ErrUnsupportedVersion
	case codes.DataLoss:
		return keystore.ErrIntegrity
	default:
		return err
	}
}
