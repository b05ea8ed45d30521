package waiton

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// probeResult is the outcome of one probe invocation. Size is meaningful
// only for KindFile (-1 means "absent"); Available is meaningful for every
// other kind.
type probeResult struct {
	Available bool
	Size      int64
}

// prober is the interface every resource kind implements: one probe
// function per variant instead of a single function branching on Kind.
// One prober is built per Descriptor and reused across every poll cycle of
// its poller.
type prober interface {
	probe(ctx context.Context) probeResult
}

// newProber builds the prober for a descriptor, given the run's Options.
func newProber(d Descriptor, opts Options) prober {
	switch d.Kind {
	case KindFile:
		return &fileProbe{path: d.FilePath}
	case KindTCP:
		return &tcpProbe{descriptor: d, timeout: *opts.TCPTimeout}
	case KindSocket:
		return &socketProbe{path: d.SocketPath}
	case KindHTTPHead, KindHTTPGet, KindHTTPUnixHead, KindHTTPUnixGet:
		return newHTTPProbe(d, opts)
	default:
		return &unavailableProbe{}
	}
}

// unavailableProbe never succeeds; used defensively for a Kind that somehow
// escapes classification (ParseResource never actually returns KindUnknown
// today, but newProber must stay total).
type unavailableProbe struct{}

func (unavailableProbe) probe(context.Context) probeResult { return probeResult{} }

// fileProbe stats a path and returns its size, or -1 if it doesn't exist.
// It returns a size rather than a bool because poller.go's stability
// algorithm needs the value, not just presence.
type fileProbe struct {
	path string
}

func (p *fileProbe) probe(_ context.Context) probeResult {
	fi, err := os.Stat(p.path)
	if err != nil {
		return probeResult{Size: -1}
	}
	return probeResult{Available: true, Size: fi.Size()}
}

// tcpProbe attempts a TCP connect with a bounded timeout.
type tcpProbe struct {
	descriptor Descriptor
	timeout    time.Duration
}

func (p *tcpProbe) probe(ctx context.Context) probeResult {
	if p.descriptor.tcpMalformed {
		return probeResult{}
	}

	dialer := &net.Dialer{Timeout: p.timeout}
	addr := net.JoinHostPort(p.descriptor.Host, strconv.Itoa(p.descriptor.Port))

	dialCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return probeResult{}
	}
	_ = conn.Close()
	return probeResult{Available: true}
}

// socketProbe attempts a Unix domain socket connect.
type socketProbe struct {
	path string
}

func (p *socketProbe) probe(ctx context.Context) probeResult {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "unix", p.path)
	if err != nil {
		return probeResult{}
	}
	_ = conn.Close()
	return probeResult{Available: true}
}

// httpProbe issues one HTTP(S) request per probe cycle, applying every TLS,
// proxy, auth, and header knob from Options. For the HTTP-over-Unix kinds
// the transport dials the configured socket path regardless of the URL's
// host.
type httpProbe struct {
	descriptor     Descriptor
	method         string
	url            string
	client         *http.Client
	headers        http.Header
	auth           *BasicAuth
	validateStatus ValidateStatusFunc
}

func newHTTPProbe(d Descriptor, opts Options) *httpProbe {
	transport := &http.Transport{}

	if d.Kind.isUnixHTTP() {
		socketPath := d.SocketPath
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			dialer := &net.Dialer{}
			return dialer.DialContext(ctx, "unix", socketPath)
		}
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: !opts.StrictSSL} //nolint:gosec // opt-in per Options.StrictSSL
	if pool := loadCAPool(opts.TLS.CA); pool != nil {
		tlsConfig.RootCAs = pool
	}
	if opts.TLS.Cert != "" {
		cert, err := loadTLSCertificate(opts.TLS.Cert, opts.TLS.Key, opts.TLS.Passphrase)
		if err != nil {
			opts.Logger.Debug("skipping client certificate", "resource", d.Raw, "error", err)
		} else {
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
	}
	transport.TLSClientConfig = tlsConfig

	if opts.Proxy != "" {
		if proxyURL, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.HTTPTimeout,
	}
	if opts.FollowRedirect != nil && !*opts.FollowRedirect {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	requestURL := d.URL
	if d.Kind.isUnixHTTP() {
		requestURL = d.Scheme + "://unix" + d.URLPath
	}

	return &httpProbe{
		descriptor:     d,
		method:         d.Kind.httpMethod(),
		url:            requestURL,
		client:         client,
		headers:        opts.Headers,
		auth:           opts.Auth,
		validateStatus: opts.ValidateStatus,
	}
}

func (p *httpProbe) probe(ctx context.Context) probeResult {
	req, err := http.NewRequestWithContext(ctx, p.method, p.url, nil)
	if err != nil {
		return probeResult{}
	}
	for k, vs := range p.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if p.auth != nil {
		req.SetBasicAuth(p.auth.Username, p.auth.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return probeResult{}
	}
	defer resp.Body.Close()

	return probeResult{Available: p.validateStatus(resp.StatusCode)}
}

// loadTLSCertificate parses a PEM-encoded client certificate and key,
// decrypting the key first if passphrase is non-empty. X509KeyPair alone
// can't consume an encrypted key: the PEM block still has to be decrypted
// down to a plain PKCS#1/PKCS#8 key before it's usable.
func loadTLSCertificate(certPEM, keyPEM, passphrase string) (tls.Certificate, error) {
	if passphrase == "" {
		return tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	}

	block, rest := pem.Decode([]byte(keyPEM))
	if block == nil {
		return tls.Certificate{}, newConfigError("no PEM block found in TLS key")
	}
	if !x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // legacy PEM encryption is what a passphrase decrypts
		return tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	}

	decrypted, err := x509.DecryptPEMBlock(block, []byte(passphrase)) //nolint:staticcheck // see above
	if err != nil {
		return tls.Certificate{}, newConfigError("decrypting TLS key with the configured passphrase: %v", err)
	}

	plainPEM := pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: decrypted})
	plainPEM = append(plainPEM, rest...)
	return tls.X509KeyPair([]byte(certPEM), plainPEM)
}

func loadCAPool(ca string) *x509.CertPool {
	if ca == "" {
		return nil
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(ca)) {
		return nil
	}
	return pool
}
