// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0

// Package grpc establishes mutually authenticated gRPC connections to an
// orbiterd runtime endpoint, over TCP or a local unix socket, and resolves
// the client's own certificate identity for auditing.
package grpc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/absmach/supermq/pkg/errors"
	"github.com/gofrs/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
)

const (
	// verifyDomain is the name the server certificate is validated against,
	// on both transport kinds.
	verifyDomain = "server.orbiter.sh"
	// localAuthority stands in for the HTTP/2 :authority header when the
	// transport is a unix socket and no resolvable authority exists.
	localAuthority = "orbiterd.local"
)

var (
	// ErrCredentialRead indicates an unreadable credential file. The wrapped
	// error names the offending path.
	ErrCredentialRead = errors.New("failed to read credential file")
	// ErrMalformedCredentials indicates PEM or x509 material that could not
	// be parsed, or a key that does not correspond to the certificate.
	ErrMalformedCredentials = errors.New("failed to parse credential material")
	// ErrMissingIdentityField indicates a well-formed client certificate
	// lacking a field required for identity resolution.
	ErrMissingIdentityField = errors.New("client certificate is missing a required identity field")
	// ErrConnectionFailed indicates a dial or handshake failure. The wrapped
	// error carries the target description.
	ErrConnectionFailed = errors.New("failed to connect to the runtime endpoint")

	errGrpcClose          = errors.New("failed to close grpc connection")
	errNoCertificateBlock = errors.New("no certificate block in PEM data")
	errAppendRootCA       = errors.New("failed to append root ca to tls.Config")
)

// Config carries the credential paths and the target string for one client
// connection. The target is either an absolute URI (network) or a bare
// filesystem path (unix socket).
type Config struct {
	URL          string        `env:"URL"             envDefault:"https://localhost:7031"`
	Timeout      time.Duration `env:"TIMEOUT"         envDefault:"60s"`
	ClientCert   string        `env:"CLIENT_CERT"     envDefault:""`
	ClientKey    string        `env:"CLIENT_KEY"      envDefault:""`
	ServerCAFile string        `env:"SERVER_CA_CERTS" envDefault:""`
}

// credentialSet holds the raw PEM material for one construction attempt. It
// is discarded once the TLS config is built.
type credentialSet struct {
	rootCA     []byte
	clientCert []byte
	clientKey  []byte
}

type Client interface {
	// Close closes the gRPC connection.
	Close() error

	// Secure is used for pretty printing TLS info.
	Secure() string

	// Connection returns the gRPC connection.
	Connection() *grpc.ClientConn

	// Identity returns the identity extracted from the client certificate.
	Identity() Identity

	// ID returns the connection's unique identifier, for log correlation.
	ID() string
}

type client struct {
	*grpc.ClientConn
	id       string
	identity Identity
	target   Target
}

var _ Client = (*client)(nil)

// NewClient reads the configured credentials, resolves the client identity,
// and dials the target with mTLS. The returned handle corresponds to exactly
// one completed handshake; any failure aborts construction and no handle is
// produced. Cancelling ctx during the dial releases the channel.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	return newClient(ctx, cfg)
}

func newClient(ctx context.Context, cfg Config, extra ...grpc.DialOption) (Client, error) {
	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	// Identity must be resolvable before any transport activity.
	identity, err := extractIdentity(creds.clientCert)
	if err != nil {
		return nil, err
	}

	tlsConfig, err := buildTLSConfig(creds)
	if err != nil {
		return nil, err
	}

	target := ParseTarget(cfg.URL)

	conn, err := dial(ctx, target, credentials.NewTLS(tlsConfig), extra...)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			return nil, errors.Wrap(err, cerr)
		}
		return nil, err
	}

	return &client{
		ClientConn: conn,
		id:         id.String(),
		identity:   identity,
		target:     target,
	}, nil
}

func (c *client) Close() error {
	if err := c.ClientConn.Close(); err != nil {
		return errors.Wrap(errGrpcClose, err)
	}

	return nil
}

func (c *client) Secure() string {
	return fmt.Sprintf("mTLS as %s", c.identity.SubjectCommonName)
}

func (c *client) Connection() *grpc.ClientConn {
	return c.ClientConn
}

func (c *client) Identity() Identity {
	return c.identity
}

func (c *client) ID() string {
	return c.id
}

// loadCredentials reads the three PEM files in the order root CA, client
// certificate, client key, failing on the first unreadable one.
func loadCredentials(cfg Config) (credentialSet, error) {
	var creds credentialSet
	var err error

	if creds.rootCA, err = os.ReadFile(cfg.ServerCAFile); err != nil {
		return credentialSet{}, errors.Wrap(ErrCredentialRead, fmt.Errorf("ca certificate %s: %w", cfg.ServerCAFile, err))
	}

	if creds.clientCert, err = os.ReadFile(cfg.ClientCert); err != nil {
		return credentialSet{}, errors.Wrap(ErrCredentialRead, fmt.Errorf("client certificate %s: %w", cfg.ClientCert, err))
	}

	if creds.clientKey, err = os.ReadFile(cfg.ClientKey); err != nil {
		return credentialSet{}, errors.Wrap(ErrCredentialRead, fmt.Errorf("client key %s: %w", cfg.ClientKey, err))
	}

	return creds, nil
}

// buildTLSConfig assembles the mutual TLS context: the root CA as the only
// trust anchor, the client key pair as the presented identity, and the fixed
// verification domain.
func buildTLSConfig(creds credentialSet) (*tls.Config, error) {
	capool := x509.NewCertPool()
	if !capool.AppendCertsFromPEM(creds.rootCA) {
		return nil, errors.Wrap(ErrMalformedCredentials, errAppendRootCA)
	}

	certificate, err := tls.X509KeyPair(creds.clientCert, creds.clientKey)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedCredentials, err)
	}

	return &tls.Config{
		RootCAs:      capool,
		Certificates: []tls.Certificate{certificate},
		ServerName:   verifyDomain,
	}, nil
}

// dial opens the classified transport and drives the channel to Ready so
// that a returned connection always corresponds to a completed handshake.
func dial(ctx context.Context, target Target, tc credentials.TransportCredentials, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithTransportCredentials(tc),
	}

	var addr string
	switch target.Kind {
	case TargetLocalSocket:
		addr = "unix://" + target.Path
		opts = append(opts, grpc.WithAuthority(localAuthority))
	default:
		addr = target.URI.Host
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, errors.Wrap(ErrConnectionFailed, fmt.Errorf("%s: %w", target, err))
	}

	if err := waitForReady(ctx, conn); err != nil {
		if cerr := conn.Close(); cerr != nil {
			err = errors.Wrap(err, cerr)
		}
		return nil, errors.Wrap(ErrConnectionFailed, fmt.Errorf("%s: %w", target, err))
	}

	return conn, nil
}

// waitForReady blocks until the channel completes its first handshake. A
// transient failure is terminal for the construction attempt: retry policy
// belongs to the caller, not this layer.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()

	for {
		switch state := conn.GetState(); state {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure, connectivity.Shutdown:
			return fmt.Errorf("connection entered state %s", state)
		default:
			if !conn.WaitForStateChange(ctx, state) {
				return ctx.Err()
			}
		}
	}
}
