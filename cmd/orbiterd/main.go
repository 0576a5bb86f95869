// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0

// orbiterd is the reference runtime daemon: a TLS-terminating gRPC server
// exposing the standard health service on a TCP address or a unix socket.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	mglog "github.com/absmach/supermq/logger"
	"github.com/caarlos0/env/v11"
	"github.com/orbiter-sh/orbiter/internal/server"
	grpcserver "github.com/orbiter-sh/orbiter/internal/server/grpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

const (
	svcName       = "orbiterd"
	envPrefixGRPC = "ORBITERD_GRPC_"
)

type config struct {
	LogLevel string `env:"ORBITERD_LOG_LEVEL" envDefault:"info"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Printf("failed to load %s configuration : %s\n", svcName, err)
		os.Exit(1)
	}

	var exitCode int
	defer mglog.ExitWithError(&exitCode)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		fmt.Println(err)
		exitCode = 1
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	grpcServerConfig := server.Config{}
	if err := env.ParseWithOptions(&grpcServerConfig, env.Options{Prefix: envPrefixGRPC}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s gRPC server configuration: %s", svcName, err))
		exitCode = 1
		return
	}

	registerServices := func(srv *grpc.Server) {
		reflection.Register(srv)
	}

	gs := grpcserver.New(ctx, cancel, svcName, grpcServerConfig, registerServices, logger)

	g.Go(func() error {
		return gs.Start()
	})

	g.Go(func() error {
		return server.StopHandler(ctx, cancel, logger, svcName, gs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service terminated: %s", svcName, err))
		exitCode = 1
	}
}
