// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0
package grpc

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/absmach/supermq/pkg/errors"
)

// Identity is the in-memory representation of the client's x509 identity,
// extracted once per connection and kept for the lifetime of the handle.
// It is suitable for serialization into logs or audit records.
type Identity struct {
	SubjectCommonName string `json:"subject_common_name"`
	IssuerCommonName  string `json:"issuer_common_name"`
	SHA256Fingerprint string `json:"sha256_fingerprint"`
	KeyAlgorithm      string `json:"key_algorithm"`
}

// extractIdentity parses the PEM-encoded client certificate and resolves the
// identity fields used for auditing. It runs before any transport activity:
// a certificate whose identity cannot be resolved never reaches the dialer.
func extractIdentity(certPEM []byte) (Identity, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return Identity{}, errors.Wrap(ErrMalformedCredentials, errNoCertificateBlock)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return Identity{}, errors.Wrap(ErrMalformedCredentials, err)
	}

	if cert.Subject.CommonName == "" {
		return Identity{}, errors.Wrap(ErrMissingIdentityField, fmt.Errorf("subject common name"))
	}

	if cert.Issuer.CommonName == "" {
		return Identity{}, errors.Wrap(ErrMissingIdentityField, fmt.Errorf("issuer common name"))
	}

	if cert.PublicKeyAlgorithm == x509.UnknownPublicKeyAlgorithm {
		return Identity{}, errors.Wrap(ErrMissingIdentityField, fmt.Errorf("public key algorithm"))
	}

	return Identity{
		SubjectCommonName: cert.Subject.CommonName,
		IssuerCommonName:  cert.Issuer.CommonName,
		SHA256Fingerprint: fingerprint(cert.Raw),
		KeyAlgorithm:      cert.PublicKeyAlgorithm.String(),
	}, nil
}

// fingerprint renders the SHA-256 digest of the certificate's DER encoding
// as colon-separated uppercase hex pairs.
func fingerprint(der []byte) string {
	sum := sha256.Sum256(der)

	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}

	return strings.Join(parts, ":")
}
