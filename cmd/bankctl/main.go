// bankctl 通过 gRPC 驱动运行中的 bank 服务，供外部调度器触发月度利率调整
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/wyfcoding/mortgagebank/internal/lending/application"
	grpc_client "github.com/wyfcoding/mortgagebank/internal/lending/interfaces/grpc"
	"github.com/wyfcoding/mortgagebank/pkg/grpcclient"
)

func main() {
	var (
		target     string
		population int
		timeout    time.Duration
		retries    int
	)
	flag.StringVar(&target, "target", "localhost:50051", "bank gRPC address")
	flag.IntVar(&population, "population", 0, "household population for the monthly step")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "overall deadline")
	flag.IntVar(&retries, "retries", 3, "retries on unavailable")
	flag.Parse()

	if err := run(target, population, timeout, retries); err != nil {
		slog.Error("bankctl failed", "target", target, "error", err)
		os.Exit(1)
	}
}

func run(target string, population int, timeout time.Duration, retries int) error {
	client, conn, err := grpc_client.Dial(grpcclient.ClientConfig{
		Target:            target,
		ConnTimeout:       5,
		MaxRetries:        retries,
		RetryDelay:        500,
		EnableKeepalive:   true,
		KeepaliveInterval: 30,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := client.Step(ctx, &application.StepCommand{Population: population})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
