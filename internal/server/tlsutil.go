// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrAppendClientCA = errors.New("failed to append client ca to tls.Config")

// TLSSetupResult contains the result of TLS configuration setup.
type TLSSetupResult struct {
	Config *tls.Config
	MTLS   bool
}

// ReadFileOrData reads data from file if input looks like a file path,
// otherwise treats input as raw PEM data.
func ReadFileOrData(input string) ([]byte, error) {
	if len(input) < 1000 && !strings.Contains(input, "\n") {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
	return []byte(input), nil
}

// LoadX509KeyPair loads an X.509 key pair from certificate and key files or data.
func LoadX509KeyPair(certfile, keyfile string) (tls.Certificate, error) {
	cert, err := ReadFileOrData(certfile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to read cert: %w", err)
	}

	key, err := ReadFileOrData(keyfile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to read key: %w", err)
	}

	return tls.X509KeyPair(cert, key)
}

// ConfigureClientCA configures the client CA certificates for the TLS config.
// Returns true if a client CA was configured, false otherwise.
func ConfigureClientCA(tlsConfig *tls.Config, clientCAFile string) (bool, error) {
	if clientCAFile == "" {
		return false, nil
	}

	clientCA, err := ReadFileOrData(clientCAFile)
	if err != nil {
		return false, fmt.Errorf("failed to load client ca file: %w", err)
	}

	if len(clientCA) == 0 {
		return false, nil
	}

	if tlsConfig.ClientCAs == nil {
		tlsConfig.ClientCAs = x509.NewCertPool()
	}

	if !tlsConfig.ClientCAs.AppendCertsFromPEM(clientCA) {
		return false, ErrAppendClientCA
	}

	return true, nil
}

// SetupTLS builds the server TLS configuration from the certificate, key and
// optional client CA. A configured client CA escalates to mandatory client
// certificate verification.
func SetupTLS(certFile, keyFile, clientCAFile string) (*TLSSetupResult, error) {
	certificate, err := LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth certificates: %w", err)
	}

	tlsConfig := &tls.Config{
		ClientAuth:   tls.NoClientCert,
		Certificates: []tls.Certificate{certificate},
	}

	mtls, err := ConfigureClientCA(tlsConfig, clientCAFile)
	if err != nil {
		return nil, err
	}

	if mtls {
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return &TLSSetupResult{Config: tlsConfig, MTLS: mtls}, nil
}

// BuildMTLSDescription builds a description string for mTLS configuration.
func BuildMTLSDescription(clientCAFile string) string {
	if clientCAFile == "" {
		return ""
	}

	return fmt.Sprintf("client ca %s", clientCAFile)
}
