package waiton

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestFileProbe(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "data")

	p := &fileProbe{path: path}
	r := p.probe(context.Background())
	if r.Size != -1 || r.Available {
		t.Fatalf("probe on missing file = %+v, want unavailable/-1", r)
	}

	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	r = p.probe(context.Background())
	if !r.Available || r.Size != 5 {
		t.Fatalf("probe on existing file = %+v, want available/size 5", r)
	}
}

func TestTCPProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	d := ParseResource("tcp:" + addr.IP.String() + ":" + strconv.Itoa(addr.Port))
	p := &tcpProbe{descriptor: d, timeout: time.Second}
	r := p.probe(context.Background())
	if !r.Available {
		t.Error("expected TCP probe to succeed against a listening port")
	}
}

func TestTCPProbeUnreachable(t *testing.T) {
	d := ParseResource("tcp:127.0.0.1:1")
	p := &tcpProbe{descriptor: d, timeout: 50 * time.Millisecond}
	r := p.probe(context.Background())
	if r.Available {
		t.Error("expected TCP probe against an unreachable port to fail")
	}
}

func TestTCPProbeMalformed(t *testing.T) {
	d := ParseResource("tcp:not-a-port")
	p := &tcpProbe{descriptor: d}
	r := p.probe(context.Background())
	if r.Available {
		t.Error("malformed TCP descriptor should never report available")
	}
}

func TestSocketProbe(t *testing.T) {
	tmpDir := t.TempDir()
	sockPath := filepath.Join(tmpDir, "app.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	p := &socketProbe{path: sockPath}
	r := p.probe(context.Background())
	if !r.Available {
		t.Error("expected socket probe to succeed against a listening socket")
	}
}

func TestHTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := ParseResource(srv.URL)
	opts := Options{Resources: []string{srv.URL}}
	_ = opts.Validate()
	p := newHTTPProbe(d, opts)

	r := p.probe(context.Background())
	if !r.Available {
		t.Error("expected HTTP probe to succeed against a 200 response")
	}
}

func selfSignedCertAndKey(t *testing.T) (certPEM, keyPEM string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "waiton-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}

	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
	return certPEM, keyPEM
}

func TestLoadTLSCertificateNoPassphrase(t *testing.T) {
	certPEM, keyPEM := selfSignedCertAndKey(t)

	if _, err := loadTLSCertificate(certPEM, keyPEM, ""); err != nil {
		t.Fatalf("loadTLSCertificate() unexpected error: %v", err)
	}
}

func TestLoadTLSCertificateWithPassphrase(t *testing.T) {
	certPEM, keyPEM := selfSignedCertAndKey(t)

	block, _ := pem.Decode([]byte(keyPEM))
	encrypted, err := x509.EncryptPEMBlock(rand.Reader, block.Type, block.Bytes, []byte("hunter2"), x509.PEMCipherAES256) //nolint:staticcheck // matches loadTLSCertificate's legacy decryption path
	if err != nil {
		t.Fatal(err)
	}
	encryptedKeyPEM := string(pem.EncodeToMemory(encrypted))

	if _, err := loadTLSCertificate(certPEM, encryptedKeyPEM, "hunter2"); err != nil {
		t.Fatalf("loadTLSCertificate() unexpected error with correct passphrase: %v", err)
	}
	if _, err := loadTLSCertificate(certPEM, encryptedKeyPEM, "wrong"); err == nil {
		t.Fatal("expected an error decrypting with the wrong passphrase")
	}
}

func TestHTTPProbeStatusValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := ParseResource(srv.URL)
	opts := Options{Resources: []string{srv.URL}}
	_ = opts.Validate()
	p := newHTTPProbe(d, opts)

	r := p.probe(context.Background())
	if r.Available {
		t.Error("expected HTTP probe to fail on a 404 response")
	}
}

