// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0
package grpc

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	testCACommonName     = "ca.orbiter.test"
	testClientCommonName = "client.orbiter.test"
)

// testPKI is a throwaway certificate authority with one client and one
// server certificate, generated fresh for each test.
type testPKI struct {
	caCertPEM     []byte
	clientCertPEM []byte
	clientKeyPEM  []byte
	clientDER     []byte
	serverCertPEM []byte
	serverKeyPEM  []byte
}

func newTestPKI(t *testing.T) testPKI {
	t.Helper()

	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating ca key: %v", err)
	}

	caTemplate := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Orbiter Test"},
			CommonName:   testCACommonName,
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour * 24),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	caCertDER, err := x509.CreateCertificate(rand.Reader, &caTemplate, &caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("creating ca certificate: %v", err)
	}

	clientKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating client key: %v", err)
	}

	clientTemplate := x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			Organization: []string{"Orbiter Test"},
			CommonName:   testClientCommonName,
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour * 24),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	clientCertDER, err := x509.CreateCertificate(rand.Reader, &clientTemplate, &caTemplate, &clientKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("creating client certificate: %v", err)
	}

	serverKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating server key: %v", err)
	}

	serverTemplate := x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject: pkix.Name{
			Organization: []string{"Orbiter Test"},
			CommonName:   verifyDomain,
		},
		DNSNames:              []string{verifyDomain},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour * 24),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	serverCertDER, err := x509.CreateCertificate(rand.Reader, &serverTemplate, &caTemplate, &serverKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("creating server certificate: %v", err)
	}

	return testPKI{
		caCertPEM:     pemEncode("CERTIFICATE", caCertDER),
		clientCertPEM: pemEncode("CERTIFICATE", clientCertDER),
		clientKeyPEM:  pemEncode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(clientKey)),
		clientDER:     clientCertDER,
		serverCertPEM: pemEncode("CERTIFICATE", serverCertDER),
		serverKeyPEM:  pemEncode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(serverKey)),
	}
}

// selfIssuedCert creates a certificate signed by a fresh CA, with the given
// subject and signer common names; empty names are omitted to exercise the
// missing-field paths.
func selfIssuedCert(t *testing.T, subjectCN, issuerCN string) []byte {
	t.Helper()

	signerKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating signer key: %v", err)
	}

	signerTemplate := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Orbiter Test"},
			CommonName:   issuerCN,
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour * 24),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating leaf key: %v", err)
	}

	leafTemplate := x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			Organization: []string{"Orbiter Test"},
			CommonName:   subjectCN,
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour * 24),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	leafDER, err := x509.CreateCertificate(rand.Reader, &leafTemplate, &signerTemplate, &leafKey.PublicKey, signerKey)
	if err != nil {
		t.Fatalf("creating leaf certificate: %v", err)
	}

	return pemEncode("CERTIFICATE", leafDER)
}

func pemEncode(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

// writeCredentials materializes the client-side PEM triple under dir and
// returns the three paths in CA, cert, key order.
func (p testPKI) writeCredentials(t *testing.T, dir string) (string, string, string) {
	t.Helper()

	caFile := filepath.Join(dir, "ca.pem")
	certFile := filepath.Join(dir, "client.pem")
	keyFile := filepath.Join(dir, "client.key")

	for file, data := range map[string][]byte{
		caFile:   p.caCertPEM,
		certFile: p.clientCertPEM,
		keyFile:  p.clientKeyPEM,
	} {
		if err := os.WriteFile(file, data, 0o600); err != nil {
			t.Fatalf("writing %s: %v", file, err)
		}
	}

	return caFile, certFile, keyFile
}
