// Package tls provides the certificate of the HTTPS server. Without
// files on disk a self-signed certificate for localhost is generated.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	fileMode      = 0o600
	validity      = 30 * 24 * time.Hour
	renewalWindow = 7 * 24 * time.Hour
)

var nowFn = time.Now

// LoadOrGenerateConfig returns a server configuration using the key pair
// in certFile and keyFile. A new pair is written when the files are
// missing, invalid or expire within a week.
func LoadOrGenerateConfig(certFile, keyFile string, logger *zap.Logger) (*tls.Config, error) {
	cert, err := loadCertificate(certFile, keyFile)
	switch {
	case err == nil && nowFn().Add(renewalWindow).Before(cert.Leaf.NotAfter):
		logger.Info("using pre-existing TLS certificate", zap.String("cert", certFile))
		return serverConfig(cert), nil
	case err == nil:
		logger.Info("pre-existing certificate will expire soon, generating new certificate")
	case errors.Is(err, os.ErrNotExist):
		logger.Info("generating new TLS certificate", zap.String("cert", certFile))
	default:
		logger.Warn("invalid TLS certificate, generating new certificate", zap.Error(err))
	}

	cert, err = generate(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return serverConfig(cert), nil
}

// LoadClientConfig returns a client configuration trusting certFile.
func LoadClientConfig(certFile string) (*tls.Config, error) {
	data, err := os.ReadFile(certFile)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, errors.Errorf("no certificate found in %s", certFile)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func serverConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

func loadCertificate(certFile, keyFile string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return cert, errors.WithStack(err)
	}
	if cert.Leaf == nil {
		cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return cert, errors.Wrap(err, "failed to parse certificate")
		}
	}
	return cert, nil
}

func generate(certFile, keyFile string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "failed to generate key")
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 127))
	if err != nil {
		return tls.Certificate{}, errors.WithStack(err)
	}

	now := nowFn()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "lessonmark",
			Organization: []string{"lessonmark"},
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(validity),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:              []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "failed to create certificate")
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, errors.WithStack(err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	for path, data := range map[string][]byte{certFile: certPEM, keyFile: keyPEM} {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return tls.Certificate{}, errors.WithStack(err)
		}
		if err := os.WriteFile(path, data, fileMode); err != nil {
			return tls.Certificate{}, errors.Wrapf(err, "failed to write %s", path)
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, errors.WithStack(err)
	}
	cert.Leaf, err = x509.ParseCertificate(der)
	return cert, errors.WithStack(err)
}
