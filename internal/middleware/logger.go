package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"installment_app_echo/internal/logger"
)

// RequestLogger logs one line per request through zerolog
func RequestLogger() echo.MiddlewareFunc {
	httpLog := logger.WithComponent("http")

	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			var event *zerolog.Event
			switch {
			case v.Status >= 500:
				event = httpLog.Error().Err(v.Error)
			case v.Status >= 400:
				event = httpLog.Warn()
			default:
				event = httpLog.Info()
			}

			if uid, ok := c.Get("userUID").(string); ok && uid != "" {
				event = event.Str("user_id", uid)
			}

			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
