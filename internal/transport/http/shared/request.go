package shared

import (
	"net"
	"net/http"
	"strings"

	"fieldpay/internal/domain/payroll"
)

func ClientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// QueryMonth reads ?month=YYYY-MM.
func QueryMonth(r *http.Request) (payroll.Month, error) {
	return payroll.ParseMonth(r.URL.Query().Get("month"))
}
