package adapter

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"os"
	"time"

	"go.trai.ch/zerr"
	"golang.org/x/net/http2"
)

// http2ReadIdleTimeout is how long an HTTP/2 connection may stay silent before a health ping
const http2ReadIdleTimeout = 30 * time.Second

// HTTPClient builds the client the request pipeline sends through. Per-attempt
// timeouts are applied by the pipeline, so the client itself has none.
func HTTPClient(cfg ServerConfig) (*http.Client, error) {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	if cfg.CAFile != "" {
		pool, err := loadCertPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tr.TLSClientConfig.RootCAs = pool
	}

	if cfg.HTTP2 {
		t2, err := http2.ConfigureTransports(tr)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to enable HTTP/2")
		}
		t2.ReadIdleTimeout = http2ReadIdleTimeout
	}

	return &http.Client{Transport: tr}, nil
}

// loadCertPool returns the system roots plus the certificates in caFile
func loadCertPool(caFile string) (*x509.CertPool, error) {
	path, err := expandHome(caFile)
	if err != nil {
		return nil, err
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read CA file"), "path", path)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, zerr.With(zerr.Wrap(ErrInvalidConfig, "server.ca_file contains no PEM certificates"), "path", path)
	}
	return pool, nil
}
