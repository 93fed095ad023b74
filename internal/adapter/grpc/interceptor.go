package grpc

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	tokenHeader  = "authorization"
	bearerPrefix = "Bearer "
)

// AuthInterceptor returns a gRPC unary server interceptor checking the API token
// sent in the authorization header, either bare or as "Bearer <token>".
// Requests without a valid token fail with codes.Unauthenticated.
func AuthInterceptor(apiToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get(tokenHeader)
		if len(values) == 0 {
			return nil, status.Errorf(codes.Unauthenticated, "%s: missing api token", info.FullMethod)
		}

		token := strings.TrimPrefix(values[0], bearerPrefix)
		if subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
			return nil, status.Errorf(codes.Unauthenticated, "%s: api token rejected", info.FullMethod)
		}

		return handler(ctx, req)
	}
}

// LoggingInterceptor returns a gRPC unary server interceptor that logs every
// request with its duration and status code. Server failures are logged as errors.
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		event := log.Info()
		switch code {
		case codes.OK:
		case codes.Internal, codes.Unknown:
			event = log.Error().Err(err)
		default:
			event = log.Warn().Err(err)
		}
		event.Str("Method", info.FullMethod).
			Dur("Duration", time.Since(start)).
			Str("Code", code.String()).
			Msg("grpc request")

		return resp, err
	}
}
