package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/mtiunov/library-service-project/pkg/auth"
	"github.com/mtiunov/library-service-project/pkg/logger"
)

// CallerContext extracts the authenticated caller from the X-User headers
// set by the gateway and places it on the request context.
func CallerContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		userID := req.Header.Get(auth.XUserIDHeader)
		if userID == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "user-id is empty")
		}
		id, err := strconv.Atoi(userID)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "user-id is invalid")
		}
		caller := auth.Caller{
			ID:      id,
			Email:   req.Header.Get(auth.XUserEmailHeader),
			IsStaff: req.Header.Get(auth.XUserRoleHeader) == auth.RoleStaff,
		}
		req = req.WithContext(auth.SetCallerContext(req.Context(), caller))
		c.SetRequest(req)
		return next(c)
	}
}

func NewRateLimiter(rps rate.Limit) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rps))
}

func RequestLoggerConfig() middleware.RequestLoggerConfig {
	cfg := logger.Log{LogLevel: zapcore.DebugLevel, Sink: ""}
	log := logger.NewLogger(cfg, "echo")
	c := middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zapcore.InfoLevel
			if v.Error != nil {
				level = zapcore.ErrorLevel
			}
			log.Log(level, "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}
	return c
}
