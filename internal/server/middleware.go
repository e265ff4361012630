package server

import (
	"net/http"
	"strconv"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/KaramelBytes/tallyloom/internal/logging"
)

// rateLimiter applies a global token bucket to every request.
type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (rl *rateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			w.Header().Set("Retry-After", "1")
			respondError(w, r, ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// concurrencyLimiter bounds the number of requests processed at once.
// Requests wait for a slot until their context ends.
type concurrencyLimiter struct {
	sem *semaphore.Weighted
	max int64
}

func newConcurrencyLimiter(max int) *concurrencyLimiter {
	return &concurrencyLimiter{sem: semaphore.NewWeighted(int64(max)), max: int64(max)}
}

func (cl *concurrencyLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := cl.sem.Acquire(r.Context(), 1); err != nil {
			w.Header().Set("Retry-After", "1")
			respondError(w, r, ErrUnavailable.WithDetails(map[string]string{"max_concurrent": strconv.FormatInt(cl.max, 10)}))
			return
		}
		defer cl.sem.Release(1)
		next.ServeHTTP(w, r)
	})
}

// maxBody caps request bodies; decoding past the cap fails with
// *http.MaxBytesError.
func maxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				respondError(w, r, ErrPayloadTooLarge.WithDetails(map[string]int64{"max_size": limit, "size": r.ContentLength}))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
