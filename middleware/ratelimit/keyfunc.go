package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

type KeyFunc func(r *http.Request) string

// DefaultKeyFunc identifica o cliente: header configurado, depois o primeiro IP do
// X-Forwarded-For (só se confiável) e por fim o host do RemoteAddr.
// O valor é opaco para o limiter; nada aqui valida o formato do IP.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}
