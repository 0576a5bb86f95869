// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0
package cli

import (
	"github.com/absmach/supermq/pkg/errors"
	"github.com/fatih/color"
	"github.com/orbiter-sh/orbiter/pkg/clients/grpc"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errDaemonUnavailable = errors.New("orbiterd is unavailable on the configured target")

func decodeError(err error) error {
	statusErr, ok := status.FromError(err)
	if ok {
		switch statusErr.Code() {
		case codes.Unavailable:
			return errDaemonUnavailable
		case codes.DeadlineExceeded:
			return err
		}
	}

	switch {
	case errors.Contains(err, grpc.ErrCredentialRead):
		return grpc.ErrCredentialRead
	case errors.Contains(err, grpc.ErrMalformedCredentials):
		return grpc.ErrMalformedCredentials
	case errors.Contains(err, grpc.ErrMissingIdentityField):
		return grpc.ErrMissingIdentityField
	case errors.Contains(err, grpc.ErrConnectionFailed):
		return errDaemonUnavailable
	default:
		return err
	}
}

func printError(cmd *cobra.Command, message string, err error) {
	if !Verbose {
		err = decodeError(err)
	}
	msg := color.New(color.FgRed).Sprintf(message, err)
	cmd.Println(msg)
}
