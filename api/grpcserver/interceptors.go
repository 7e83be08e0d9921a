package grpcserver

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// LoggingInterceptor logs each call with its request as JSON.
func LoggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	marshaler := protojson.MarshalOptions{EmitUnpopulated: true}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		ev := logger.Debug()
		if err != nil {
			ev = logger.Warn().Err(err).Str("code", status.Code(err).String())
		}
		if msg, ok := req.(proto.Message); ok {
			if b, merr := marshaler.Marshal(msg); merr == nil {
				ev = ev.RawJSON("request", b)
			}
		}
		ev.Str("method", info.FullMethod).Dur("took", time.Since(start)).Msg("rpc")
		return resp, err
	}
}
