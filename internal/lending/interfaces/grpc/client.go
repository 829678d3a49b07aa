package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/wyfcoding/mortgagebank/internal/lending/application"
	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
	"github.com/wyfcoding/mortgagebank/pkg/grpcclient"
)

// Client LendingService 客户端
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial 按客户端配置建立连接，调用方负责关闭返回的连接
func Dial(cfg grpcclient.ClientConfig, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	conn, err := grpcclient.NewClient(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn), conn, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *Client) Quote(ctx context.Context, in *application.LoanCommand, opts ...grpc.CallOption) (*application.MortgageDTO, error) {
	out := new(application.MortgageDTO)
	if err := c.invoke(ctx, "Quote", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Originate(ctx context.Context, in *application.LoanCommand, opts ...grpc.CallOption) (*application.MortgageDTO, error) {
	out := new(application.MortgageDTO)
	if err := c.invoke(ctx, "Originate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MaxPrice(ctx context.Context, in *application.MaxPriceQuery, opts ...grpc.CallOption) (*application.MaxPriceDTO, error) {
	out := new(application.MaxPriceDTO)
	if err := c.invoke(ctx, "MaxPrice", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Step(ctx context.Context, in *application.StepCommand, opts ...grpc.CallOption) (*domain.StepResult, error) {
	out := new(domain.StepResult)
	if err := c.invoke(ctx, "Step", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
