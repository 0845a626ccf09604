package certgen

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func parseCert(t *testing.T, certPEM []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatalf("invalid certificate PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse cert: %v", err)
	}
	return cert
}

func TestGenerateServerCertificate(t *testing.T) {
	certPEM, keyPEM, err := GenerateServerCertificate([]string{"localhost", "127.0.0.1", "::1"}, 24*time.Hour)
	if err != nil {
		t.Fatalf("GenerateServerCertificate failed: %v", err)
	}

	if _, err := tls.X509KeyPair(certPEM, keyPEM); err != nil {
		t.Fatalf("certificate and key do not form a pair: %v", err)
	}

	cert := parseCert(t, certPEM)
	if cert.Subject.CommonName != "localhost" {
		t.Errorf("CommonName = %q; want localhost", cert.Subject.CommonName)
	}
	if len(cert.DNSNames) != 1 || cert.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v; want [localhost]", cert.DNSNames)
	}
	if len(cert.IPAddresses) != 2 || !cert.IPAddresses[0].Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("IPAddresses = %v; want [127.0.0.1 ::1]", cert.IPAddresses)
	}
	if len(cert.ExtKeyUsage) != 1 || cert.ExtKeyUsage[0] != x509.ExtKeyUsageServerAuth {
		t.Errorf("ExtKeyUsage = %v; want [ServerAuth]", cert.ExtKeyUsage)
	}
	if d := cert.NotAfter.Sub(time.Now()); d > 24*time.Hour || d < 23*time.Hour {
		t.Errorf("unexpected validity remaining: %v", d)
	}
	if err := cert.VerifyHostname("localhost"); err != nil {
		t.Errorf("VerifyHostname(localhost): %v", err)
	}
}

func TestGenerateServerCertificate_NoHosts(t *testing.T) {
	_, _, err := GenerateServerCertificate(nil, time.Hour)
	if !errors.Is(err, ErrNoHosts) {
		t.Fatalf("expected ErrNoHosts, got %v", err)
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")

	certPEM, keyPEM, err := GenerateServerCertificate([]string{"localhost"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateServerCertificate failed: %v", err)
	}
	if err := WriteFiles(certPath, keyPath, certPEM, keyPEM); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	if _, err := tls.LoadX509KeyPair(certPath, keyPath); err != nil {
		t.Errorf("LoadX509KeyPair: %v", err)
	}
	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("stat key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key mode = %o; want 600", perm)
	}
}

func TestWriteFiles_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	err := WriteFiles(filepath.Join(dir, "c"), filepath.Join(dir, "k"), []byte("c"), []byte("k"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
