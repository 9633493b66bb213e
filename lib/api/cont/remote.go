package cont

import (
	"net"
	"net/http"
)

// RemoteIP is the client address without the port. With chi's RealIP in front
// it reflects X-Real-IP or X-Forwarded-For.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
