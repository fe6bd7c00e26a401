package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	tls "github.com/refraction-networking/utls"
)

// chromeHello builds a Chrome ClientHello that only offers http/1.1.
// net/http cannot run h2 over a utls conn, so h2 must never be negotiated.
// ApplyPreset mutates the extensions it is given, so each conn needs its own.
func chromeHello() (*tls.ClientHelloSpec, error) {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return nil, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return &spec, nil
}

var chromeHelloOK = sync.OnceValue(func() error {
	_, err := chromeHello()
	return err
})

// dialChromeTLS opens a TCP connection and performs a handshake that
// fingerprints as desktop Chrome.
func dialChromeTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	hello, err := chromeHello()
	if err != nil {
		return nil, fmt.Errorf("engine: chrome hello: %w", err)
	}

	raw, err := (&net.Dialer{Timeout: 10 * time.Second}).DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	uconn := tls.UClient(raw, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := uconn.ApplyPreset(hello); err != nil {
		raw.Close()
		return nil, fmt.Errorf("engine: apply chrome hello: %w", err)
	}
	if err := uconn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("engine: tls handshake with %s: %w", host, err)
	}
	return uconn, nil
}

// newChromeTransport returns a transport whose TLS handshakes carry a Chrome
// fingerprint. Several competitor sites sit behind CDNs that reject Go's
// default ClientHello. If the fingerprint cannot be built the standard
// transport is returned instead.
func newChromeTransport() http.RoundTripper {
	if err := chromeHelloOK(); err != nil {
		slog.Warn("chrome tls fingerprint unavailable, using default transport", "error", err)
		return http.DefaultTransport
	}
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialTLSContext:      dialChromeTLS,
		ForceAttemptHTTP2:   false,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}
}
