package api

import (
	"net"
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimit enforces a token bucket per client IP.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.RequestsPerSecond <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		limiter := s.limiters.GetOrSet(ip, func() *rate.Limiter {
			return rate.NewLimiter(rate.Limit(s.opts.RequestsPerSecond), max(s.opts.Burst, 1))
		})
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
