package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/common"
	pb "github.com/dmitrijs2005/demoauth/internal/proto"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

/*************
 * Fake pb client
 *************/

type fakePB struct {
	lastLoginReq        *pb.LoginRequest
	lastRefreshTokenReq *pb.RefreshTokenRequest
	lastLogoutReq       *pb.LogoutRequest
	whoAmICalls         int

	tokenResp *pb.TokenResponse
	loginErr  error

	refreshTokenResp *pb.TokenResponse
	refreshTokenErr  error

	logoutErr error

	whoAmIResp *pb.WhoAmIResponse
	whoAmIErr  error
}

func (f *fakePB) Login(ctx context.Context, in *pb.LoginRequest, opts ...grpc.CallOption) (*pb.TokenResponse, error) {
	f.lastLoginReq = in
	return f.tokenResp, f.loginErr
}
func (f *fakePB) RefreshToken(ctx context.Context, in *pb.RefreshTokenRequest, opts ...grpc.CallOption) (*pb.TokenResponse, error) {
	f.lastRefreshTokenReq = in
	return f.refreshTokenResp, f.refreshTokenErr
}
func (f *fakePB) Logout(ctx context.Context, in *pb.LogoutRequest, opts ...grpc.CallOption) (*pb.LogoutResponse, error) {
	f.lastLogoutReq = in
	return &pb.LogoutResponse{}, f.logoutErr
}
func (f *fakePB) WhoAmI(ctx context.Context, in *pb.WhoAmIRequest, opts ...grpc.CallOption) (*pb.WhoAmIResponse, error) {
	f.whoAmICalls++
	return f.whoAmIResp, f.whoAmIErr
}

/*************
 * accessTokenInterceptor tests
 *************/

func TestInterceptor_RefreshesTokenOnExpiredAndRetries(t *testing.T) {
	f := &fakePB{
		refreshTokenResp: &pb.TokenResponse{AccessToken: "A2", RefreshToken: "R2"},
	}
	c := &GRPCClient{
		client:       f,
		accessToken:  "A1",
		refreshToken: "R1",
	}

	callCount := 0
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		callCount++
		md, _ := metadata.FromOutgoingContext(ctx)
		toks := md.Get(common.AccessTokenHeaderName)
		require.Len(t, toks, 1)

		if callCount == 1 {
			require.Equal(t, "A1", toks[0])
			return status.Error(codes.Unauthenticated, common.ErrAccessTokenExpired.Error())
		}
		require.Equal(t, "A2", toks[0])
		return nil
	}

	err := c.accessTokenInterceptor(context.Background(), pb.SessionService_WhoAmI_FullMethodName, nil, nil, nil, invoker)
	require.NoError(t, err)
	require.Equal(t, 2, callCount)
	require.Equal(t, "A2", c.accessToken)
	require.Equal(t, "R2", c.refreshToken)
	require.Equal(t, "R1", f.lastRefreshTokenReq.RefreshToken)
}

func TestInterceptor_NoRefreshIfNoRefreshToken(t *testing.T) {
	f := &fakePB{}
	c := &GRPCClient{
		client:      f,
		accessToken: "A1",
	}

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, common.ErrAccessTokenExpired.Error())
	}

	err := c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker)
	require.Error(t, err)
	require.Nil(t, f.lastRefreshTokenReq)
}

func TestInterceptor_NeverRetriesSessionMethods(t *testing.T) {
	for _, method := range []string{pb.SessionService_Login_FullMethodName, pb.SessionService_RefreshToken_FullMethodName} {
		f := &fakePB{refreshTokenResp: &pb.TokenResponse{AccessToken: "A2", RefreshToken: "R2"}}
		c := &GRPCClient{client: f, accessToken: "A1", refreshToken: "R1"}

		calls := 0
		invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			calls++
			return status.Error(codes.Unauthenticated, common.ErrAccessTokenExpired.Error())
		}

		err := c.accessTokenInterceptor(context.Background(), method, nil, nil, nil, invoker)
		require.Error(t, err, method)
		require.Equal(t, 1, calls, method)
		require.Nil(t, f.lastRefreshTokenReq, method)
	}
}

func TestInterceptor_RefreshFailureIsReturned(t *testing.T) {
	refreshErr := status.Error(codes.Unauthenticated, "invalid credential")
	f := &fakePB{refreshTokenErr: refreshErr}
	c := &GRPCClient{client: f, accessToken: "A1", refreshToken: "R1"}

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, common.ErrAccessTokenExpired.Error())
	}

	err := c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker)
	require.Equal(t, refreshErr, err)
	require.Equal(t, "A1", c.accessToken)
}

func TestInterceptor_IgnoresOtherErrors(t *testing.T) {
	c := &GRPCClient{accessToken: "X"}
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Internal, "boom")
	}
	err := c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker)
	require.Error(t, err)
}

func TestInterceptor_UnauthenticatedButDifferentMessage_NoRefresh(t *testing.T) {
	f := &fakePB{}
	c := &GRPCClient{client: f, accessToken: "X", refreshToken: "R"}
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, "some other reason")
	}
	err := c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker)
	require.Error(t, err)
	require.Nil(t, f.lastRefreshTokenReq)
}

func TestInterceptor_NoTokenNoMetadata(t *testing.T) {
	c := &GRPCClient{}
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		require.Empty(t, md.Get(common.AccessTokenHeaderName))
		return nil
	}
	require.NoError(t, c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker))
}

/*************
 * mapError tests
 *************/

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	require.Equal(t, ErrUnauthorized, c.mapError(status.Error(codes.Unauthenticated, "x")))
	require.Equal(t, ErrUnauthorized, c.mapError(status.Error(codes.PermissionDenied, "x")))
	require.Equal(t, ErrUnavailable, c.mapError(status.Error(codes.Unavailable, "x")))
	require.Equal(t, ErrUnavailable, c.mapError(status.Error(codes.DeadlineExceeded, "x")))
	require.Equal(t, ErrEmailNotConfirmed, c.mapError(status.Error(codes.FailedPrecondition, "x")))
	require.Equal(t, ErrInvalidInput, c.mapError(status.Error(codes.InvalidArgument, "x")))
	e := errors.New("plain")
	require.ErrorContains(t, c.mapError(e), "rpc error:")
	require.NoError(t, c.mapError(nil))
}

/*************
 * Session method tests
 *************/

func TestLogin_SetsTokens(t *testing.T) {
	f := &fakePB{tokenResp: &pb.TokenResponse{AccessToken: "A", RefreshToken: "R"}}
	c := &GRPCClient{client: f, requestTimeout: time.Second}
	require.NoError(t, c.Login(context.Background(), "u@example.com", "pw"))
	require.Equal(t, "A", c.accessToken)
	require.Equal(t, "R", c.refreshToken)
	require.Equal(t, "u@example.com", f.lastLoginReq.Email)
	require.Equal(t, "pw", f.lastLoginReq.Password)
	require.True(t, c.IsLoggedIn())
}

func TestLogin_MapsError(t *testing.T) {
	f := &fakePB{loginErr: status.Error(codes.FailedPrecondition, "email not confirmed")}
	c := &GRPCClient{client: f}
	require.ErrorIs(t, c.Login(context.Background(), "u", "p"), ErrEmailNotConfirmed)
	require.False(t, c.IsLoggedIn())
}

func TestRefresh_RotatesTokens(t *testing.T) {
	f := &fakePB{refreshTokenResp: &pb.TokenResponse{AccessToken: "A2", RefreshToken: "R2"}}
	c := &GRPCClient{client: f, accessToken: "A1", refreshToken: "R1"}
	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, "R1", f.lastRefreshTokenReq.RefreshToken)
	require.Equal(t, "A2", c.accessToken)
	require.Equal(t, "R2", c.refreshToken)
}

func TestRefresh_RejectedClearsTokens(t *testing.T) {
	f := &fakePB{refreshTokenErr: status.Error(codes.Unauthenticated, "invalid credential")}
	c := &GRPCClient{client: f, accessToken: "A1", refreshToken: "R1"}
	require.ErrorIs(t, c.Refresh(context.Background()), ErrUnauthorized)
	require.False(t, c.IsLoggedIn())
}

func TestRefresh_UnavailableKeepsTokens(t *testing.T) {
	f := &fakePB{refreshTokenErr: status.Error(codes.Unavailable, "down")}
	c := &GRPCClient{client: f, accessToken: "A1", refreshToken: "R1"}
	require.ErrorIs(t, c.Refresh(context.Background()), ErrUnavailable)
	require.Equal(t, "R1", c.refreshToken)
}

func TestRefresh_NotLoggedIn(t *testing.T) {
	f := &fakePB{}
	c := &GRPCClient{client: f}
	require.ErrorIs(t, c.Refresh(context.Background()), ErrNotLoggedIn)
	require.Nil(t, f.lastRefreshTokenReq)
}

func TestWhoAmI(t *testing.T) {
	f := &fakePB{whoAmIResp: &pb.WhoAmIResponse{UserID: "u1", Email: "a@b.c"}}
	c := &GRPCClient{client: f, accessToken: "A"}
	resp, err := c.WhoAmI(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u1", resp.UserID)

	f.whoAmIErr = status.Error(codes.Unauthenticated, "invalid credential")
	_, err = c.WhoAmI(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestWhoAmI_NotLoggedIn(t *testing.T) {
	f := &fakePB{}
	c := &GRPCClient{client: f}
	_, err := c.WhoAmI(context.Background())
	require.ErrorIs(t, err, ErrNotLoggedIn)
	require.Zero(t, f.whoAmICalls)
}

func TestLogout_ForgetsTokensEvenOnError(t *testing.T) {
	f := &fakePB{logoutErr: status.Error(codes.Unavailable, "down")}
	c := &GRPCClient{client: f, accessToken: "A", refreshToken: "R"}
	require.ErrorIs(t, c.Logout(context.Background()), ErrUnavailable)
	require.Equal(t, "R", f.lastLogoutReq.RefreshToken)
	require.False(t, c.IsLoggedIn())

	require.ErrorIs(t, c.Logout(context.Background()), ErrNotLoggedIn)
}

func TestClose_NoConn(t *testing.T) {
	require.NoError(t, (&GRPCClient{}).Close())
}

/*************
 * End to end over bufconn
 *************/

type stubServer struct {
	pb.UnimplementedSessionServiceServer

	mu          sync.Mutex
	whoAmITok   []string
	logoutToken string
}

func (s *stubServer) Login(ctx context.Context, in *pb.LoginRequest) (*pb.TokenResponse, error) {
	if in.Password != "pw" {
		return nil, status.Error(codes.Unauthenticated, "invalid credential")
	}
	return &pb.TokenResponse{AccessToken: "A1", RefreshToken: "R1"}, nil
}

func (s *stubServer) RefreshToken(ctx context.Context, in *pb.RefreshTokenRequest) (*pb.TokenResponse, error) {
	if in.RefreshToken != "R1" {
		return nil, status.Error(codes.Unauthenticated, "invalid credential")
	}
	return &pb.TokenResponse{AccessToken: "A2", RefreshToken: "R2"}, nil
}

func (s *stubServer) Logout(ctx context.Context, in *pb.LogoutRequest) (*pb.LogoutResponse, error) {
	s.mu.Lock()
	s.logoutToken = in.RefreshToken
	s.mu.Unlock()
	return &pb.LogoutResponse{}, nil
}

func (s *stubServer) WhoAmI(ctx context.Context, _ *pb.WhoAmIRequest) (*pb.WhoAmIResponse, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	tok := ""
	if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
		tok = v[0]
	}
	s.mu.Lock()
	s.whoAmITok = append(s.whoAmITok, tok)
	s.mu.Unlock()

	if tok != "A2" {
		return nil, status.Error(codes.Unauthenticated, common.ErrAccessTokenExpired.Error())
	}
	return &pb.WhoAmIResponse{UserID: "u1", Email: "a@example.com", Role: common.RoleBasic}, nil
}

func TestGRPCClient_EndToEnd(t *testing.T) {
	stub := &stubServer{}
	srv := grpc.NewServer()
	pb.RegisterSessionServiceServer(srv, stub)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c := &GRPCClient{endpointURL: "passthrough:///bufnet", requestTimeout: 5 * time.Second}
	require.NoError(t, c.InitGRPCClient(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})))
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()

	require.ErrorIs(t, c.Login(ctx, "a@example.com", "bad"), ErrUnauthorized)
	require.NoError(t, c.Login(ctx, "a@example.com", "pw"))

	who, err := c.WhoAmI(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", who.UserID)
	require.Equal(t, []string{"A1", "A2"}, stub.whoAmITok)

	require.NoError(t, c.Logout(ctx))
	require.Equal(t, "R2", stub.logoutToken)
	require.False(t, c.IsLoggedIn())
}
