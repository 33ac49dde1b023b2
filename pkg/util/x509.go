// Copyright 2020-2021 Couchbase, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file  except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the  License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" // nolint:gosec
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/couchbase/service-broker-tests/pkg/errors"
)

const (
	// pemTypeRSAPrivateKey is used with PKCS#1 RSA keys.
	pemTypeRSAPrivateKey = "RSA PRIVATE KEY"

	// pemTypePrivateKey is used with PKCS#8 keys.
	pemTypePrivateKey = "PRIVATE KEY"

	// pemTypeECPrivateKey is used with EC private keys.
	pemTypeECPrivateKey = "EC PRIVATE KEY"

	// pemTypeCertificate is used with all certificates.
	pemTypeCertificate = "CERTIFICATE"

	// testCertificateLifetime is how long generated test certificates are valid for.
	testCertificateLifetime = 24 * time.Hour
)

// CertificateUsage defines what a certificate may be used for.
type CertificateUsage string

const (
	// CA certificates may sign other certificates.
	CA CertificateUsage = "ca"

	// Server certificates authenticate a TLS server.
	Server CertificateUsage = "server"
)

// GenerateKey creates a PEM encoded PKCS#8 P-256 private key.
func GenerateKey() ([]byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	b, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}

	block := &pem.Block{
		Type:  pemTypePrivateKey,
		Bytes: b,
	}

	return pem.EncodeToMemory(block), nil
}

// generateSerial creates a unique certificate serial number as defined
// in RFC 3280.  It is upto 20 octets in length and non-negative
func generateSerial() (*big.Int, error) {
	one := 1
	shift := 128
	serialLimit := new(big.Int).Lsh(big.NewInt(int64(one)), uint(shift))

	serialNumber, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		return nil, err
	}

	return new(big.Int).Abs(serialNumber), nil
}

// generateSubjectKeyIdentifier creates a hash of the public key as defined in
// RFC3280 used to create certificate paths from a leaf to a CA
func generateSubjectKeyIdentifier(pub interface{}) ([]byte, error) {
	var subjectPublicKey []byte

	var err error

	switch pub := pub.(type) {
	case *rsa.PublicKey:
		subjectPublicKey, err = asn1.Marshal(*pub)
	case *ecdsa.PublicKey:
		subjectPublicKey = elliptic.Marshal(pub.Curve, pub.X, pub.Y)
	default:
		return nil, fmt.Errorf("invalid public key type")
	}

	if err != nil {
		return nil, err
	}

	sum := sha1.Sum(subjectPublicKey) // nolint:gosec

	return sum[:], nil
}

// DecodePrivateKey accepts a PEM formatted private key and parses it.
func DecodePrivateKey(keyPEM []byte) (crypto.PrivateKey, error) {
	block, rest := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.NewConfigurationError("unable to decode certificate key PEM file")
	}

	if len(rest) > 0 {
		return nil, errors.NewConfigurationError("unexpected content in PEM file")
	}

	switch block.Type {
	case pemTypeRSAPrivateKey:
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case pemTypePrivateKey:
		return x509.ParsePKCS8PrivateKey(block.Bytes)
	case pemTypeECPrivateKey:
		return x509.ParseECPrivateKey(block.Bytes)
	}

	return nil, errors.NewConfigurationError("private key format %s unsupported", block.Type)
}

// DecodeCertificate accepts an parses a PEM formatted certificate.
func DecodeCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, rest := pem.Decode(certPEM)
	if block == nil {
		return nil, errors.NewConfigurationError("unable to decode certificate PEM file")
	}

	if len(rest) > 0 {
		return nil, errors.NewConfigurationError("unexpected content in PEM file")
	}

	if block.Type != pemTypeCertificate {
		return nil, errors.NewConfigurationError("certificate format %s unsupported", block.Type)
	}

	return x509.ParseCertificate(block.Bytes)
}

// GenerateCertificate generates and signs an X.509 certificate.  If no CA is
// provided the certificate is self signed.
func GenerateCertificate(keyPEM []byte, subject pkix.Name, lifetime time.Duration, usage CertificateUsage, dnsSANs []string, ipSANs []net.IP, caKeyPEM, caCertPEM []byte) ([]byte, error) {
	key, err := DecodePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.NewConfigurationError("private key cannot be used for signing")
	}

	serialNumber, err := generateSerial()
	if err != nil {
		return nil, err
	}

	subjectKeyID, err := generateSubjectKeyIdentifier(signer.Public())
	if err != nil {
		return nil, err
	}

	notBefore := time.Now()
	notAfter := notBefore.Add(lifetime)

	certificate := &x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               subject,
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		BasicConstraintsValid: true,
		SubjectKeyId:          subjectKeyID,
		DNSNames:              dnsSANs,
		IPAddresses:           ipSANs,
	}

	switch usage {
	case CA:
		certificate.IsCA = true
		certificate.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	case Server:
		certificate.KeyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment
		certificate.ExtKeyUsage = []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
		}
	default:
		return nil, errors.NewConfigurationError("unknown usage type %v", usage)
	}

	// Default to self signing.
	caKey := key
	caCert := certificate

	if caKeyPEM != nil {
		caKey, err = DecodePrivateKey(caKeyPEM)
		if err != nil {
			return nil, err
		}

		caCert, err = DecodeCertificate(caCertPEM)
		if err != nil {
			return nil, err
		}
	}

	cert, err := x509.CreateCertificate(rand.Reader, certificate, caCert, signer.Public(), caKey)
	if err != nil {
		return nil, err
	}

	certPEMBlock := &pem.Block{
		Type:  pemTypeCertificate,
		Bytes: cert,
	}

	return pem.EncodeToMemory(certPEMBlock), nil
}

// TLSMaterial is a CA and server key pair for running a TLS service locally.
type TLSMaterial struct {
	// CA is the PEM encoded CA certificate clients should trust.
	CA []byte

	// Certificate is the server certificate and key pair.
	Certificate tls.Certificate
}

// GenerateLocalTLS creates a throwaway CA and a server certificate signed by it,
// valid for localhost and the IPv4 loopback address.
func GenerateLocalTLS() (*TLSMaterial, error) {
	caKey, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	caCert, err := GenerateCertificate(caKey, pkix.Name{CommonName: "Service Broker Test CA"}, testCertificateLifetime, CA, nil, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	serverKey, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	serverCert, err := GenerateCertificate(serverKey, pkix.Name{CommonName: "localhost"}, testCertificateLifetime, Server, []string{"localhost"}, []net.IP{net.IPv4(127, 0, 0, 1)}, caKey, caCert)
	if err != nil {
		return nil, err
	}

	certificate, err := tls.X509KeyPair(serverCert, serverKey)
	if err != nil {
		return nil, err
	}

	material := &TLSMaterial{
		CA:          caCert,
		Certificate: certificate,
	}

	return material, nil
}
