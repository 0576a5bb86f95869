// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"log/slog"
	"os"

	mglog "github.com/absmach/supermq/logger"
	"github.com/caarlos0/env/v11"
	"github.com/orbiter-sh/orbiter/cli"
	clientgrpc "github.com/orbiter-sh/orbiter/pkg/clients/grpc"
	"github.com/spf13/cobra"
)

const (
	svcName       = "cli"
	envPrefixGRPC = "ORBITER_GRPC_"
)

type config struct {
	LogLevel string `env:"ORBITER_LOG_LEVEL" envDefault:"info"`
}

func main() {
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

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	grpcConfig := clientgrpc.Config{}
	if err := env.ParseWithOptions(&grpcConfig, env.Options{Prefix: envPrefixGRPC}); err != nil {
		logger.Error(fmt.Sprintf("failed to load gRPC client configuration: %s", err))
		exitCode = 1
		return
	}

	cliSvc := cli.New(grpcConfig)

	rootCmd := &cobra.Command{
		Use:   "orbiter [command]",
		Short: "Orbiter CLI",
		Long:  "CLI application for interacting with an orbiterd runtime over mTLS.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := cmd.Help(); err != nil {
				logger.Error(fmt.Sprintf("failed to print help: %s", err))
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&cli.Verbose, "verbose", "v", false, "Enable verbose error output")

	rootCmd.AddCommand(cliSvc.NewWhoamiCmd())
	rootCmd.AddCommand(cliSvc.NewHealthCmd())
	rootCmd.AddCommand(cliSvc.NewKeysCmd())

	if err := rootCmd.Execute(); err != nil {
		exitCode = 1
		return
	}
}
