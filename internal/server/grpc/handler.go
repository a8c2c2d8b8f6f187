package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/demoauth/internal/common"
	pb "github.com/dmitrijs2005/demoauth/internal/proto"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.TokenResponse, error) {

	tokens, err := s.sessions.Login(ctx, req.Email, req.Password)

	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil

}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *pb.RefreshTokenRequest) (*pb.TokenResponse, error) {

	if req.RefreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh token is required")
	}

	tokens, err := s.sessions.Refresh(ctx, req.RefreshToken)

	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil

}

func (s *GRPCServer) Logout(ctx context.Context, req *pb.LogoutRequest) (*pb.LogoutResponse, error) {

	s.sessions.Logout(ctx, req.RefreshToken, accessTokenFromContext(ctx))

	return &pb.LogoutResponse{}, nil

}

func (s *GRPCServer) WhoAmI(ctx context.Context, req *pb.WhoAmIRequest) (*pb.WhoAmIResponse, error) {

	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	resp := &pb.WhoAmIResponse{
		UserID:         claims.UserID,
		Email:          claims.Email,
		OrganizationID: claims.OrganizationID,
		Role:           claims.Role,
		TokenID:        claims.ID,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return resp, nil

}

// toStatus maps service errors onto gRPC codes. Credential failures share
// one message; an expired access token keeps its own so clients can refresh.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrAccessTokenExpired):
		return status.Error(codes.Unauthenticated, common.ErrAccessTokenExpired.Error())
	case errors.Is(err, common.ErrInvalidCredential), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, common.ErrInvalidCredential.Error())
	case errors.Is(err, common.ErrEmailNotConfirmed):
		return status.Error(codes.FailedPrecondition, common.ErrEmailNotConfirmed.Error())
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, common.ErrValidation.Error())
	case errors.Is(err, common.ErrStorage):
		s.logger.Error(ctx, "storage failure", "error", err)
		return status.Error(codes.Unavailable, "service unavailable")
	default:
		s.logger.Error(ctx, "internal error", "error", err)
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
}
