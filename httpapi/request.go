package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads one JSON object from the body into dst. An empty body
// leaves dst untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", goAccount.ErrValidation, err)
	}
	return nil
}

// clientIP resolves the caller address. With trusted proxies the address is
// read from X-Forwarded-For, skipping one entry per proxy from the right.
func clientIP(r *http.Request, trustedProxies int) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if trustedProxies <= 0 {
		return host
	}

	var hops []string
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if p := strings.TrimSpace(part); p != "" {
			hops = append(hops, p)
		}
	}
	hops = append(hops, host)

	idx := len(hops) - 1 - trustedProxies
	if idx < 0 {
		idx = 0
	}
	return hops[idx]
}

func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goAccount.WithClientIP(r.Context(), clientIP(r, s.trustedProxies))
		ctx = goAccount.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
		)
	})
}
