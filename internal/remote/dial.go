package remote

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// dial opens the TCP connection, directly or through proxyURL.
func dial(ctx context.Context, addr, proxyURL string, timeout time.Duration) (net.Conn, error) {
	direct := &net.Dialer{Timeout: timeout}
	if proxyURL == "" {
		return direct.DialContext(ctx, "tcp", addr)
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	dialer, err := proxy.FromURL(u, direct)
	if err != nil {
		return nil, fmt.Errorf("proxy %s: %w", u.Redacted(), err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", addr)
	}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s via proxy: %w", addr, err)
	}
	return conn, nil
}
