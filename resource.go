package waiton

import (
	"regexp"
	"strconv"
)

// Kind represents the type of resource being probed.
type Kind int

const (
	// KindUnknown represents a resource that could not be classified.
	KindUnknown Kind = iota
	// KindFile represents a filesystem path probed by stat.
	KindFile
	// KindHTTPHead represents an http(s) URL probed with a HEAD request.
	KindHTTPHead
	// KindHTTPGet represents an http(s)-get URL probed with a GET request.
	KindHTTPGet
	// KindTCP represents a host:port pair probed with a TCP connect.
	KindTCP
	// KindSocket represents a Unix domain socket path probed with a connect.
	KindSocket
	// KindHTTPUnixHead represents an http(s) URL served over a Unix socket, HEAD.
	KindHTTPUnixHead
	// KindHTTPUnixGet represents an http(s)-get URL served over a Unix socket, GET.
	KindHTTPUnixGet
)

// Kind string constants.
const (
	kindUnknownStr      = "unknown"
	kindFileStr         = "file"
	kindHTTPHeadStr     = "http-head"
	kindHTTPGetStr      = "http-get"
	kindTCPStr          = "tcp"
	kindSocketStr       = "socket"
	kindHTTPUnixHeadStr = "http-unix-head"
	kindHTTPUnixGetStr  = "http-unix-get"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return kindFileStr
	case KindHTTPHead:
		return kindHTTPHeadStr
	case KindHTTPGet:
		return kindHTTPGetStr
	case KindTCP:
		return kindTCPStr
	case KindSocket:
		return kindSocketStr
	case KindHTTPUnixHead:
		return kindHTTPUnixHeadStr
	case KindHTTPUnixGet:
		return kindHTTPUnixGetStr
	case KindUnknown:
		fallthrough
	default:
		return kindUnknownStr
	}
}

// isHTTP reports whether the kind is any of the http(s) variants.
func (k Kind) isHTTP() bool {
	switch k {
	case KindHTTPHead, KindHTTPGet, KindHTTPUnixHead, KindHTTPUnixGet:
		return true
	default:
		return false
	}
}

// isUnixHTTP reports whether the kind carries an http request over a Unix socket.
func (k Kind) isUnixHTTP() bool {
	return k == KindHTTPUnixHead || k == KindHTTPUnixGet
}

// httpMethod returns the HTTP method implied by the kind.
func (k Kind) httpMethod() string {
	if k == KindHTTPGet || k == KindHTTPUnixGet {
		return "GET"
	}
	return "HEAD"
}

var (
	schemeRe   = regexp.MustCompile(`^(https?-get|https?|tcp|socket|file):(.+)$`)
	unixHTTPRe = regexp.MustCompile(`^//unix:([^:]+):([^:]+)$`)
	tcpHostRe  = regexp.MustCompile(`^(([^:]*):)?(\d+)$`)
)

// Descriptor is the immutable, parsed form of a single resource string.
// Exactly one of the payload fields below is meaningful, selected by Kind.
type Descriptor struct {
	// Raw is the original, unparsed resource string.
	Raw string
	// Kind classifies the resource.
	Kind Kind

	// FilePath is set for KindFile.
	FilePath string

	// URL is set for the http(s) kinds (the request target).
	URL string
	// Scheme is "http" or "https", set for all http(s) kinds including the
	// Unix-socket variants (whose URL field is unset; SocketPath+URLPath
	// carry the target instead).
	Scheme string

	// SocketPath is set for KindSocket and the KindHTTPUnix* kinds.
	SocketPath string
	// URLPath is the request path for the KindHTTPUnix* kinds.
	URLPath string

	// Host and Port are set for KindTCP.
	Host string
	Port int
	// tcpMalformed marks a tcp: resource whose payload didn't parse as
	// [host:]port. Per spec, this is not a config error: the TCP probe
	// simply reports unavailable every cycle, which is what reverse mode
	// needs to be able to wait on an intentionally-unreachable host.
	tcpMalformed bool
}

// ParseResource classifies a raw resource string into a Descriptor.
//
// Rules, applied in order:
//  1. A recognized scheme prefix (file:, http(s):, http(s)-get:, tcp:,
//     socket:) selects the kind; anything else is treated as a bare file
//     path.
//  2. http(s) URLs of the form "//unix:<socketPath>:<urlPath>" are folded
//     into the KindHTTPUnix* kinds.
//  3. tcp: payloads are "[host:]port"; a malformed payload is recorded, not
//     rejected.
//  4. The "-get" scheme suffix selects the GET method; otherwise HEAD.
func ParseResource(raw string) Descriptor {
	m := schemeRe.FindStringSubmatch(raw)
	if m == nil {
		return Descriptor{Raw: raw, Kind: KindFile, FilePath: raw}
	}

	scheme, rest := m[1], m[2]

	switch scheme {
	case "file":
		return Descriptor{Raw: raw, Kind: KindFile, FilePath: rest}

	case "socket":
		return Descriptor{Raw: raw, Kind: KindSocket, SocketPath: rest}

	case "tcp":
		return parseTCP(raw, rest)

	case "http", "https", "http-get", "https-get":
		return parseHTTP(raw, scheme, rest)

	default:
		return Descriptor{Raw: raw, Kind: KindFile, FilePath: raw}
	}
}

func parseTCP(raw, payload string) Descriptor {
	m := tcpHostRe.FindStringSubmatch(payload)
	if m == nil {
		return Descriptor{Raw: raw, Kind: KindTCP, tcpMalformed: true}
	}

	host := m[2]
	if host == "" {
		host = "localhost"
	}
	port, err := strconv.Atoi(m[3])
	if err != nil {
		return Descriptor{Raw: raw, Kind: KindTCP, tcpMalformed: true}
	}

	return Descriptor{Raw: raw, Kind: KindTCP, Host: host, Port: port}
}

func parseHTTP(raw, scheme, rest string) Descriptor {
	baseScheme := "http"
	getMethod := false
	switch scheme {
	case "https":
		baseScheme = "https"
	case "http-get":
		getMethod = true
	case "https-get":
		baseScheme = "https"
		getMethod = true
	}

	if m := unixHTTPRe.FindStringSubmatch(rest); m != nil {
		kind := KindHTTPUnixHead
		if getMethod {
			kind = KindHTTPUnixGet
		}
		return Descriptor{
			Raw:        raw,
			Kind:       kind,
			Scheme:     baseScheme,
			SocketPath: m[1],
			URLPath:    m[2],
		}
	}

	kind := KindHTTPHead
	if getMethod {
		kind = KindHTTPGet
	}
	return Descriptor{
		Raw:    raw,
		Kind:   kind,
		Scheme: baseScheme,
		URL:    baseScheme + ":" + rest,
	}
}

// String returns a human-readable form of the descriptor, used in log lines
// and the timeout error's pending-resource list.
func (d Descriptor) String() string {
	return d.Raw
}
