// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (cli *CLI) NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity presented to orbiterd",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.InitializeClient(cmd)
		},
		PostRun: func(cmd *cobra.Command, args []string) {
			cli.Close()
		},
		Run: func(cmd *cobra.Command, args []string) {
			identity := cli.client.Identity()

			label := color.New(color.FgCyan).SprintFunc()
			cmd.Println(label("Subject CN:     "), identity.SubjectCommonName)
			cmd.Println(label("Issuer CN:      "), identity.IssuerCommonName)
			cmd.Println(label("Key algorithm:  "), identity.KeyAlgorithm)
			cmd.Println(label("Fingerprint:    "), identity.SHA256Fingerprint)
			cmd.Println(label("Connection ID:  "), cli.client.ID())
		},
	}
}
