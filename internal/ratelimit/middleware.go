package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"
)

// KeyFunc extracts the throttle key from a request.
// An empty key skips throttling.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests whose key is out of tokens. reject writes the
// response after Retry-After has been set.
func Middleware(l Limiter, key KeyFunc, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			if ok, wait := l.Allow(k); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(wait)))
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retrySeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

// RemoteIP is the client address without its port. X-Forwarded-For is
// not trusted.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
