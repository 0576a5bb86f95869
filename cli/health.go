// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	grpchealth "google.golang.org/grpc/health/grpc_health_v1"
)

func (cli *CLI) NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Query the health of the connected orbiterd instance",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.InitializeClient(cmd)
		},
		PostRun: func(cmd *cobra.Command, args []string) {
			cli.Close()
		},
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := cli.callCtx(cmd.Context())
			defer cancel()

			res, err := grpchealth.NewHealthClient(cli.client.Connection()).Check(ctx, &grpchealth.HealthCheckRequest{})
			if err != nil {
				printError(cmd, "Failed to query orbiterd health: %v ❌ ", err)
				return
			}

			switch res.Status {
			case grpchealth.HealthCheckResponse_SERVING:
				cmd.Println(color.New(color.FgGreen).Sprint("orbiterd is serving ✅ "))
			default:
				cmd.Println(color.New(color.FgYellow).Sprintf("orbiterd reported status %s", res.Status))
			}
		},
	}
}
