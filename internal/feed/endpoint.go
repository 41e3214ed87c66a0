package feed

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint derives the feed URL from the origin the dashboard is served from:
// a secure origin gets wss, anything else ws, and the origin's hostname is
// reused with the feed port.
func Endpoint(origin string, port int, path string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("origin %q has no host", origin)
	}

	scheme := "ws"
	if strings.EqualFold(u.Scheme, "https") {
		scheme = "wss"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	out := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   path,
	}
	return out.String(), nil
}
