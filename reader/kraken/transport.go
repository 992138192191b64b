package kraken

import (
	"net"
	"net/http"
	"time"
)

type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(req)
}

// localDialer binds outgoing connections to localIP when it parses.
func localDialer(localIP string) *net.Dialer {
	d := &net.Dialer{Timeout: 10 * time.Second}
	if localIP != "" {
		if ip := net.ParseIP(localIP); ip != nil {
			d.LocalAddr = &net.TCPAddr{IP: ip}
		}
	}
	return d
}

func newHTTPClient(localIP, agent string, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext:         localDialer(localIP).DialContext,
		MaxIdleConns:        4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Transport: userAgentTransport{agent: agent, base: transport},
		Timeout:   timeout,
	}
}
