// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0

package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/orbiter-sh/orbiter/internal/server"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpchealth "google.golang.org/grpc/health/grpc_health_v1"
)

const stopWaitTime = 5 * time.Second

type Server struct {
	server.BaseServer
	mu              sync.RWMutex
	server          *grpc.Server
	health          *health.Server
	registerService serviceRegister
	started         bool
	stopped         bool
}

type serviceRegister func(srv *grpc.Server)

var _ server.Server = (*Server)(nil)

func New(ctx context.Context, cancel context.CancelFunc, name string, config server.Config, registerService serviceRegister, logger *slog.Logger) server.Server {
	address := config.Socket
	if address == "" {
		address = fmt.Sprintf("%s:%s", config.Host, config.Port)
	}
	return &Server{
		BaseServer: server.BaseServer{
			Ctx:     ctx,
			Cancel:  cancel,
			Name:    name,
			Address: address,
			Config:  config,
			Logger:  logger,
		},
		registerService: registerService,
	}
}

func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("server already stopped")
	}
	s.started = true
	s.mu.Unlock()

	errCh := make(chan error)
	grpcServerOptions := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	}

	creds := grpc.Creds(insecure.NewCredentials())

	c := s.Config
	switch {
	case c.CertFile != "" || c.KeyFile != "":
		tlsSetup, err := server.SetupTLS(c.CertFile, c.KeyFile, c.ClientCAFile)
		if err != nil {
			return fmt.Errorf("failed to setup TLS: %w", err)
		}

		creds = grpc.Creds(credentials.NewTLS(tlsSetup.Config))

		if tlsSetup.MTLS {
			s.Logger.Info(fmt.Sprintf("%s service gRPC server listening at %s with mTLS cert %s, key %s and %s", s.Name, s.Address, c.CertFile, c.KeyFile, server.BuildMTLSDescription(c.ClientCAFile)))
		} else {
			s.Logger.Info(fmt.Sprintf("%s service gRPC server listening at %s with TLS cert %s and key %s", s.Name, s.Address, c.CertFile, c.KeyFile))
		}
	default:
		s.Logger.Info(fmt.Sprintf("%s service gRPC server listening at %s without TLS", s.Name, s.Address))
	}

	listener, err := s.listen()
	if err != nil {
		return err
	}

	grpcServerOptions = append(grpcServerOptions, creds)

	s.mu.Lock()
	s.server = grpc.NewServer(grpcServerOptions...)
	s.health = health.NewServer()
	grpchealth.RegisterHealthServer(s.server, s.health)
	s.registerService(s.server)
	s.health.SetServingStatus(s.Name, grpchealth.HealthCheckResponse_SERVING)
	s.mu.Unlock()

	go func() {
		s.mu.RLock()
		srv := s.server
		s.mu.RUnlock()

		if srv != nil {
			errCh <- srv.Serve(listener)
		}
	}()

	select {
	case <-s.Ctx.Done():
		return s.Stop()
	case err := <-errCh:
		s.Cancel()
		return err
	}
}

// listen opens the configured listener: a unix domain socket when Socket is
// set, a TCP listener otherwise. A stale socket file left by a previous run
// is removed first.
func (s *Server) listen() (net.Listener, error) {
	if s.Config.Socket == "" {
		listener, err := net.Listen("tcp", s.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", s.Address, err)
		}
		return listener, nil
	}

	if _, err := os.Stat(s.Config.Socket); err == nil {
		if err := os.Remove(s.Config.Socket); err != nil {
			return nil, fmt.Errorf("failed to remove existing socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", s.Config.Socket)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on socket %s: %w", s.Config.Socket, err)
	}

	return listener, nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	defer s.Cancel()

	c := make(chan bool)
	go func() {
		defer close(c)
		if s.health != nil {
			s.health.Shutdown()
		}
		if s.server != nil {
			s.server.GracefulStop()
		}
	}()

	select {
	case <-c:
	case <-time.After(stopWaitTime):
	}

	s.Logger.Info(fmt.Sprintf("%s gRPC service shutdown at %s", s.Name, s.Address))
	return nil
}
