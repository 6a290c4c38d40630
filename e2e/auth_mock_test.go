//go:build e2e
// +build e2e

package e2e

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"

	authpb "github.com/vibast-solutions/ms-go-auth/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	defaultVerificationCallerAPIKey   = "verification-caller-key"
	defaultVerificationNoAccessAPIKey = "verification-no-access-key"
	defaultVerificationAppAPIKey      = "verification-app-api-key"
	defaultVerificationJWTSecret      = "verification-e2e-secret"
	defaultVerificationJWTIssuer      = "verification-e2e"
	verificationAuthMockAddr          = "0.0.0.0:38084"
)

func callerAPIKey() string {
	if value := strings.TrimSpace(os.Getenv("VERIFICATION_CALLER_API_KEY")); value != "" {
		return value
	}
	return defaultVerificationCallerAPIKey
}

func noAccessAPIKey() string {
	if value := strings.TrimSpace(os.Getenv("VERIFICATION_NO_ACCESS_API_KEY")); value != "" {
		return value
	}
	return defaultVerificationNoAccessAPIKey
}

func appAPIKey() string {
	if value := strings.TrimSpace(os.Getenv("VERIFICATION_APP_API_KEY")); value != "" {
		return value
	}
	return defaultVerificationAppAPIKey
}

type verificationAuthGRPCServer struct {
	authpb.UnimplementedAuthServiceServer
}

func (s *verificationAuthGRPCServer) ValidateInternalAccess(ctx context.Context, req *authpb.ValidateInternalAccessRequest) (*authpb.ValidateInternalAccessResponse, error) {
	if incomingAPIKey(ctx) != appAPIKey() {
		return nil, status.Error(codes.Unauthenticated, "unauthorized caller")
	}

	apiKey := strings.TrimSpace(req.GetApiKey())
	switch apiKey {
	case callerAPIKey():
		return &authpb.ValidateInternalAccessResponse{
			ServiceName:   "appointments-service",
			AllowedAccess: []string{"payment-verification-service", "notifications-service"},
		}, nil
	case noAccessAPIKey():
		return &authpb.ValidateInternalAccessResponse{
			ServiceName:   "appointments-service",
			AllowedAccess: []string{"notifications-service"},
		}, nil
	default:
		return nil, status.Error(codes.Unauthenticated, "invalid api key")
	}
}

func incomingAPIKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("x-api-key")
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func jwtSecret() string {
	if value := strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")); value != "" {
		return value
	}
	return defaultVerificationJWTSecret
}

func jwtIssuer() string {
	if value := strings.TrimSpace(os.Getenv("AUTH_JWT_ISSUER")); value != "" {
		return value
	}
	return defaultVerificationJWTIssuer
}

func TestMain(m *testing.M) {
	if os.Getenv("VERIFICATION_CALLER_API_KEY") == "" {
		_ = os.Setenv("VERIFICATION_CALLER_API_KEY", defaultVerificationCallerAPIKey)
	}
	if os.Getenv("VERIFICATION_NO_ACCESS_API_KEY") == "" {
		_ = os.Setenv("VERIFICATION_NO_ACCESS_API_KEY", defaultVerificationNoAccessAPIKey)
	}
	if os.Getenv("VERIFICATION_APP_API_KEY") == "" {
		_ = os.Setenv("VERIFICATION_APP_API_KEY", defaultVerificationAppAPIKey)
	}

	if os.Getenv("AUTH_JWT_SECRET") == "" {
		_ = os.Setenv("AUTH_JWT_SECRET", defaultVerificationJWTSecret)
	}
	if os.Getenv("AUTH_JWT_ISSUER") == "" {
		_ = os.Setenv("AUTH_JWT_ISSUER", defaultVerificationJWTIssuer)
	}

	listener, err := net.Listen("tcp", verificationAuthMockAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start auth grpc mock: %v\n", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	authpb.RegisterAuthServiceServer(grpcServer, &verificationAuthGRPCServer{})

	go func() {
		_ = grpcServer.Serve(listener)
	}()

	exitCode := m.Run()

	grpcServer.GracefulStop()
	_ = listener.Close()

	os.Exit(exitCode)
}
