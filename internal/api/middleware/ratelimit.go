package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// NewRateLimiter limits all requests through it to r per second with the
// given burst, shared by every client of the process. onDeny, if set,
// receives the route of each rejected request.
func NewRateLimiter(r float64, burst int, onDeny func(path string)) echo.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter.Allow() {
				return next(c)
			}
			if onDeny != nil {
				onDeny(c.Path())
			}
			retry := 1
			if r > 0 {
				retry = int(math.Ceil(1 / r))
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
		}
	}
}
