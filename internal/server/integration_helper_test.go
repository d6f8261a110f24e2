package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arm1-investment-group/rentzone-site/internal/config"
	"github.com/arm1-investment-group/rentzone-site/internal/observability"
)

// testServer holds information about a running test server.
type testServer struct {
	server  *Server
	baseURL string
	client  *http.Client
}

// testConfig returns defaults bound to ephemeral localhost ports
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "localhost"
	cfg.Server.Port = "0"
	cfg.Server.MetricsPort = "0"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	return cfg
}

// newTestServer builds a server with a no-op logger without starting it
func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := newServer(cfg, observability.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// startTestServer runs a server (HTTP or HTTPS) on a dynamic port until the
// test ends.
func startTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	if cfg.TLS.Enabled && (cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "") {
		certFile, keyFile, err := generateTestCertificates(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to generate test certificates: %v", err)
		}
		cfg.TLS.CertFile = certFile
		cfg.TLS.KeyFile = keyFile
	}

	s := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx)
	}()

	select {
	case <-s.Listening():
	case err := <-errCh:
		cancel()
		t.Fatalf("Server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("Server did not start within timeout")
	}

	protocol := "http"
	client := &http.Client{Timeout: 5 * time.Second}
	if cfg.TLS.Enabled {
		protocol = "https"
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 - self-signed test certificate
		}
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Test server returned an error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Test server did not shut down")
		}
	})

	return &testServer{
		server:  s,
		baseURL: fmt.Sprintf("%s://%s", protocol, s.Addr().String()),
		client:  client,
	}
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := ts.client.Get(ts.baseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func generateTestCertificates(tmpDir string) (string, string, error) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privKey.PublicKey, privKey)
	if err != nil {
		return "", "", err
	}

	certFile := filepath.Join(tmpDir, "test-cert.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		return "", "", err
	}

	privKeyBytes, err := x509.MarshalPKCS8PrivateKey(privKey)
	if err != nil {
		return "", "", err
	}
	keyFile := filepath.Join(tmpDir, "test-key.pem")
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privKeyBytes})
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		return "", "", err
	}

	return certFile, keyFile, nil
}
