package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wyfcoding/mortgagebank/internal/lending/application"
	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
)

// ServiceName gRPC 服务全名
const ServiceName = "mortgagebank.v1.LendingService"

// LendingServer gRPC 服务接口
type LendingServer interface {
	Quote(ctx context.Context, req *application.LoanCommand) (*application.MortgageDTO, error)
	Originate(ctx context.Context, req *application.LoanCommand) (*application.MortgageDTO, error)
	MaxPrice(ctx context.Context, req *application.MaxPriceQuery) (*application.MaxPriceDTO, error)
	Step(ctx context.Context, req *application.StepCommand) (*domain.StepResult, error)
}

// ServiceDesc 手写的服务描述，编码见 jsonCodec
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LendingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Quote", Handler: unaryHandler("Quote", LendingServer.Quote)},
		{MethodName: "Originate", Handler: unaryHandler("Originate", LendingServer.Originate)},
		{MethodName: "MaxPrice", Handler: unaryHandler("MaxPrice", LendingServer.MaxPrice)},
		{MethodName: "Step", Handler: unaryHandler("Step", LendingServer.Step)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mortgagebank/v1/lending",
}

func unaryHandler[Req, Resp any](method string, call func(LendingServer, context.Context, *Req) (Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LendingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LendingServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterLendingServer 注册服务
func RegisterLendingServer(s grpc.ServiceRegistrar, srv LendingServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Server LendingServer 实现
type Server struct {
	app *application.LendingService
}

func NewServer(app *application.LendingService) *Server {
	return &Server{app: app}
}

func (s *Server) Quote(ctx context.Context, req *application.LoanCommand) (*application.MortgageDTO, error) {
	if req.Borrower.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "borrower id is required")
	}
	dto, err := s.app.Quote(ctx, *req)
	if err != nil {
		return nil, toStatus("quote", err)
	}
	return dto, nil
}

func (s *Server) Originate(ctx context.Context, req *application.LoanCommand) (*application.MortgageDTO, error) {
	if req.Borrower.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "borrower id is required")
	}
	dto, err := s.app.Originate(ctx, *req)
	if err != nil {
		return nil, toStatus("originate", err)
	}
	return dto, nil
}

func (s *Server) MaxPrice(ctx context.Context, req *application.MaxPriceQuery) (*application.MaxPriceDTO, error) {
	if req.Borrower.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "borrower id is required")
	}
	dto, err := s.app.MaxPrice(ctx, *req)
	if err != nil {
		return nil, toStatus("max price", err)
	}
	return dto, nil
}

func (s *Server) Step(ctx context.Context, req *application.StepCommand) (*domain.StepResult, error) {
	res, err := s.app.Step(ctx, *req)
	if err != nil {
		return nil, toStatus("step", err)
	}
	return res, nil
}

func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvariantViolation):
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	case errors.Is(err, domain.ErrMortgageNotFound):
		return status.Errorf(codes.NotFound, "%s failed: %v", op, err)
	case errors.Is(err, domain.ErrInvalidHousePrice),
		errors.Is(err, domain.ErrInvalidPopulation),
		errors.Is(err, domain.ErrInvalidPolicy):
		return status.Errorf(codes.InvalidArgument, "%s failed: %v", op, err)
	default:
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}
