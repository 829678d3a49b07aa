// Package middleware 提供 Gin 与 gRPC 的通用中间件（request id、日志、panic recover、指标、限流）
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/wyfcoding/mortgagebank/pkg/logger"
	"github.com/wyfcoding/mortgagebank/pkg/metrics"
)

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-ID"

// RequestIDKey gin context key
const RequestIDKey = "request_id"

func newRequestID(incoming string) string {
	if incoming != "" {
		return incoming
	}
	return uuid.New().String()
}

// GinLoggingMiddleware 生成 request id 并记录请求日志
func GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := newRequestID(c.GetHeader(RequestIDHeader))
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		ctx := logger.ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		logger.Info(ctx, "HTTP request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start),
		)
	}
}

// GinRecoveryMiddleware Gin panic 恢复中间件
func GinRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID, _ := c.Get(RequestIDKey)
				logger.Error(c.Request.Context(), "HTTP request panicked", "panic", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Internal server error",
					"request_id": requestID,
				})
			}
		}()
		c.Next()
	}
}

// GinMetricsMiddleware 按路由模板统计请求数与耗时
func GinMetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// GinRateLimitMiddleware 全局令牌桶限流
func GinRateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}
		c.Next()
	}
}

// GRPCLoggingInterceptor gRPC 日志拦截器，request id 取自 metadata
func GRPCLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var incoming string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("x-request-id"); len(ids) > 0 {
				incoming = ids[0]
			}
		}
		ctx = logger.ContextWithRequestID(ctx, newRequestID(incoming))

		start := time.Now()
		resp, err := handler(ctx, req)
		duration := time.Since(start)

		if err != nil {
			st, _ := status.FromError(err)
			logger.Error(ctx, "gRPC request failed",
				"method", info.FullMethod,
				"error_code", st.Code().String(),
				"error_message", st.Message(),
				"duration", duration,
			)
		} else {
			logger.Info(ctx, "gRPC request completed",
				"method", info.FullMethod,
				"duration", duration,
			)
		}
		return resp, err
	}
}

// GRPCRecoveryInterceptor gRPC panic 恢复拦截器
func GRPCRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "gRPC request panicked", "method", info.FullMethod, "panic", r)
				err = status.Error(codes.Internal, fmt.Sprintf("internal error: %v", r))
			}
		}()
		return handler(ctx, req)
	}
}

// GRPCMetricsInterceptor 按方法与状态码计数
func GRPCMetricsInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		m.GRPCRequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

// GRPCRateLimitInterceptor gRPC 限流拦截器
func GRPCRateLimitInterceptor(limiter *rate.Limiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !limiter.Allow() {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}
