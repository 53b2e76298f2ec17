package broker

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// TLSMaterial points at the trust store and key store used for mutual TLS.
// Stores ending in .p12 or .pfx are read as PKCS#12 bundles protected by their
// password, anything else is read as PEM.
type TLSMaterial struct {
	TrustStorePath     string
	TrustStorePassword string
	KeyStorePath       string
	KeyStorePassword   string
	ServerName         string
	InsecureSkipVerify bool
}

// Enabled reports whether any store was configured.
func (m TLSMaterial) Enabled() bool {
	return m.TrustStorePath != "" || m.KeyStorePath != ""
}

// LoadTLSConfig builds a client TLS configuration from the configured stores.
func LoadTLSConfig(material TLSMaterial) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         material.ServerName,
		InsecureSkipVerify: material.InsecureSkipVerify, //nolint:gosec // opt-in for lab brokers
	}

	if material.TrustStorePath != "" {
		pool, err := loadTrustStore(material.TrustStorePath, material.TrustStorePassword)
		if err != nil {
			return nil, err
		}

		cfg.RootCAs = pool
	}

	if material.KeyStorePath != "" {
		cert, err := loadKeyStore(material.KeyStorePath, material.KeyStorePassword)
		if err != nil {
			return nil, err
		}

		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

func loadTrustStore(path, password string) (*x509.CertPool, error) {
	blocks, err := readStore(path, password)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	added := 0

	for _, block := range blocks {
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse certificate in %s: %w", ErrInvalidTLSMaterial, path, err)
		}

		pool.AddCert(cert)
		added++
	}

	if added == 0 {
		return nil, fmt.Errorf("%w: no certificates found in trust store %s", ErrInvalidTLSMaterial, path)
	}

	return pool, nil
}

func loadKeyStore(path, password string) (tls.Certificate, error) {
	blocks, err := readStore(path, password)
	if err != nil {
		return tls.Certificate{}, err
	}

	var certPEM, keyPEM []byte

	for _, block := range blocks {
		switch {
		case block.Type == "CERTIFICATE":
			certPEM = append(certPEM, pem.EncodeToMemory(block)...)
		case strings.HasSuffix(block.Type, "PRIVATE KEY"):
			keyPEM = append(keyPEM, pem.EncodeToMemory(block)...)
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: key store %s: %w", ErrInvalidTLSMaterial, path, err)
	}

	return cert, nil
}

func readStore(path, password string) ([]*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidTLSMaterial, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		blocks, err := pkcs12.ToPEM(data, password)
		if err != nil {
			return nil, fmt.Errorf("%w: decode pkcs12 %s: %w", ErrInvalidTLSMaterial, path, err)
		}

		return blocks, nil
	}

	var blocks []*pem.Block

	for rest := data; ; {
		var block *pem.Block

		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}
