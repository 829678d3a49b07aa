// Package grpcclient 提供 gRPC 客户端工厂，支持 keepalive、请求超时与重试
package grpcclient

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/wyfcoding/mortgagebank/pkg/logger"
)

// ClientConfig gRPC 客户端配置
type ClientConfig struct {
	// 目标地址
	Target string
	// 连接超时（秒）
	ConnTimeout int
	// 请求超时（秒）
	RequestTimeout int
	// 最大重试次数
	MaxRetries int
	// 重试延迟（毫秒）
	RetryDelay int
	// 是否启用 keepalive
	EnableKeepalive bool
	// Keepalive 间隔（秒）
	KeepaliveInterval int
}

// NewClient 创建 gRPC 客户端连接，extra 追加在默认选项之后
func NewClient(cfg ClientConfig, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(unaryClientInterceptor(cfg)),
	}

	if cfg.ConnTimeout > 0 {
		opts = append(opts, grpc.WithConnectParams(grpc.ConnectParams{
			Backoff: backoff.Config{
				BaseDelay:  100 * time.Millisecond,
				MaxDelay:   time.Duration(cfg.ConnTimeout) * time.Second,
				Multiplier: 1.6,
				Jitter:     0.2,
			},
			MinConnectTimeout: time.Duration(cfg.ConnTimeout) * time.Second,
		}))
	}

	if cfg.EnableKeepalive {
		opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(cfg.KeepaliveInterval) * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}))
	}

	conn, err := grpc.NewClient(cfg.Target, append(opts, extra...)...)
	if err != nil {
		logger.Error(context.Background(), "Failed to create gRPC client", "target", cfg.Target, "error", err)
		return nil, err
	}
	return conn, nil
}

// unaryClientInterceptor 请求超时与重试。仅重试服务端未处理的错误码。
func unaryClientInterceptor(cfg ClientConfig) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.RequestTimeout)*time.Second)
			defer cancel()
		}

		start := time.Now()
		var lastErr error
		for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
			err := invoker(ctx, method, req, reply, cc, opts...)
			if err == nil {
				logger.Debug(ctx, "gRPC request succeeded", "method", method, "duration", time.Since(start))
				return nil
			}

			lastErr = err
			if !shouldRetry(status.Code(err)) || attempt >= cfg.MaxRetries {
				break
			}

			select {
			case <-time.After(time.Duration(cfg.RetryDelay) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		logger.Warn(ctx, "gRPC request failed", "method", method, "duration", time.Since(start), "error", lastErr)
		return lastErr
	}
}

func shouldRetry(code codes.Code) bool {
	switch code {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
