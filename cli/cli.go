// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the cobra command surface of the orbiter CLI.
package cli

import (
	"context"

	"github.com/orbiter-sh/orbiter/pkg/clients/grpc"
	"github.com/spf13/cobra"
)

var Verbose bool

type CLI struct {
	config     grpc.Config
	client     grpc.Client
	connectErr error
}

func New(config grpc.Config) *CLI {
	return &CLI{
		config: config,
	}
}

// InitializeClient performs the full connection pipeline against the
// configured target. Commands call it in PreRunE so that a failure is
// reported before the command body runs.
func (c *CLI) InitializeClient(cmd *cobra.Command) error {
	client, err := grpc.NewClient(cmd.Context(), c.config)
	if err != nil {
		c.connectErr = err
		return err
	}

	cmd.Println("🔗 Connected to orbiterd using ", client.Secure())
	c.client = client

	return nil
}

func (c *CLI) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// callCtx derives the per-RPC context from the configured timeout.
func (c *CLI) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.config.Timeout)
}
