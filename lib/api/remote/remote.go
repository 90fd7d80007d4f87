package remote

import (
	"net"
	"net/http"
)

// IP derives the requester identity from the connection address. When the
// service runs behind a trusted proxy the router mounts chi's RealIP
// middleware, which rewrites RemoteAddr from the forwarded headers before
// this runs; the trust decision lives in configuration, not here.
func IP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
