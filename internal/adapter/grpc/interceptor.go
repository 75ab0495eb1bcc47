package grpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UserIDHeader is the metadata key identifying the calling user
const UserIDHeader = "x-user-id"

type userIDKey struct{}

// WithUserID returns a context carrying the user ID
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user ID stored by AuthInterceptor
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return userID, ok
}

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata.
// The token may be sent bare or with a "Bearer " prefix.
// If the token is missing or invalid, it returns status.Unauthenticated.
// If valid, an x-user-id header is parsed into the context for the handler.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		token := strings.TrimSpace(authHeaders[0])
		if len(token) > len("bearer ") && strings.EqualFold(token[:len("bearer ")], "bearer ") {
			token = strings.TrimSpace(token[len("bearer "):])
		}
		if token != validToken {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		if userHeaders := md.Get(UserIDHeader); len(userHeaders) > 0 {
			userID, err := uuid.Parse(strings.TrimSpace(userHeaders[0]))
			if err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "invalid %s: %v", UserIDHeader, err)
			}
			ctx = WithUserID(ctx, userID)
		}

		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every unary call with its status code and duration.
// Chain it before AuthInterceptor so rejected calls are logged too.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		attrs := []any{
			"method", info.FullMethod,
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		// Runs outside AuthInterceptor, so read the raw header
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if userHeaders := md.Get(UserIDHeader); len(userHeaders) > 0 {
				attrs = append(attrs, "user_id", userHeaders[0])
			}
		}

		switch code {
		case codes.OK:
			logger.Info("grpc call", attrs...)
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			logger.Error("grpc call failed", append(attrs, "error", err)...)
		default:
			logger.Warn("grpc call rejected", append(attrs, "error", err)...)
		}

		return resp, err
	}
}
