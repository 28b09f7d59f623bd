package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
)

// CSRSubject holds the subject fields for a certificate signing request.
type CSRSubject struct {
	CommonName   string
	Organization string
	Country      string
}

// CreateCSR builds a PEM-encoded PKCS#10 certificate request.
// The signer abstracts where the private key lives: for software keys it is
// the decrypted ECDSA key, for hardware keys it delegates the one required
// signature to the external provider. The request itself only carries the
// public key and subject.
func CreateCSR(signer crypto.Signer, subject CSRSubject) (string, error) {
	if subject.CommonName == "" {
		return "", fmt.Errorf("csr: common name is required")
	}

	tmpl := &x509.CertificateRequest{
		Subject: pkix.Name{
			CommonName: subject.CommonName,
		},
		SignatureAlgorithm: x509.ECDSAWithSHA256,
	}
	if subject.Organization != "" {
		tmpl.Subject.Organization = []string{subject.Organization}
	}
	if subject.Country != "" {
		tmpl.Subject.Country = []string{subject.Country}
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, tmpl, signer)
	if err != nil {
		return "", fmt.Errorf("create certificate request: %w", err)
	}

	block := &pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}
