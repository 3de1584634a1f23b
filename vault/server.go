package vault

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"dytallix.io/pqcwallet/keystore"
)

// Server exposes a keystore.Store over the Vault gRPC service. Blobs are
// structurally validated before they are stored; Put is create-only, so a
// vault never silently replaces a key.
type Server struct {
	UnimplementedVaultServer
	Store *keystore.Store
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing keystore store")
	}
	k, err := keystore.Unmarshal(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	if err := s.Store.Put(k, false); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(k.Address), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing keystore store")
	}
	k, err := s.Store.Get(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	b, err := k.Marshal()
	if err != nil {
		return nil, status.Error(codes.Internal, "keystore serialization failed")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing keystore store")
	}
	_, err := s.Store.Get(in.GetValue())
	if err != nil {
		if st, ok := status.FromError(mapErr(err)); ok && st.Code() == codes.NotFound {
			return wrapperspb.Bool(false), nil
		}
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(true), nil
}

func (s *Server) Delete(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing keystore store")
	}
	if err := s.Store.Delete(in.GetValue()); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) List(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error) {
	_ = ctx
	_ = in
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing keystore store")
	}
	addrs, err := s.Store.List()
	if err != nil {
		return nil, mapErr(err)
	}
	vals := make([]any, len(addrs))
	for i, a := range addrs {
		vals[i] = a
	}
	out, err := structpb.NewList(vals)
	if err != nil {
		return nil, status.Error(codes.Internal, "list encoding failed")
	}
	return out, nil
}
