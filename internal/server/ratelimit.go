package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// maxTrackedActors bounds the per-actor limiter table.
const maxTrackedActors = 1024

// actorLimiter keeps one token bucket per caller.
type actorLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
}

func newActorLimiter(perSecond float64, burst int) *actorLimiter {
	if burst < 1 {
		burst = int(math.Max(1, math.Ceil(perSecond)))
	}
	cache, _ := lru.New[string, *rate.Limiter](maxTrackedActors)
	return &actorLimiter{limit: rate.Limit(perSecond), burst: burst, limiters: cache}
}

func (l *actorLimiter) get(actor string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters.Get(actor); ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Add(actor, lim)
	return lim
}

// limit rejects requests beyond the caller's rate with 429.
func (s *Server) limit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := core.ActorFromContext(r.Context())
		res := s.limiter.get(actor).Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			s.writeError(w, r, &apiError{code: CodeRateLimited, message: "rate limit exceeded for " + actor})
			return
		}
		next.ServeHTTP(w, r)
	})
}
