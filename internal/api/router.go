package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/zoonosys/zoonosys-api/docs"
	"github.com/zoonosys/zoonosys-api/internal/api/handler"
	"github.com/zoonosys/zoonosys-api/internal/api/middleware"
	"github.com/zoonosys/zoonosys-api/internal/core/access"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Auth  ports.AuthService
	Reset ports.PasswordResetService
	Codec ports.TokenCodec

	// Principals, when non-nil, refreshes roles from the store on every
	// authenticated request.
	Principals middleware.PrincipalFinder

	// Matrix defaults to access.DefaultMatrix().
	Matrix *access.Matrix

	// RateLimiter guards login, registration and reset requests when non-nil.
	RateLimiter *middleware.RateLimiter

	HealthChecks map[string]handler.PingFunc
	FrontendURL  string
	Logger       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)
	// X-Forwarded-For is honoured only from loopback and private-network peers
	e.IPExtractor = echo.ExtractIPFromXFFHeader()

	matrix := d.Matrix
	if matrix == nil {
		matrix = access.DefaultMatrix()
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echomiddleware.CORSWithConfig(corsConfig(d.FrontendURL)))
	e.Use(middleware.Metrics())
	e.Use(middleware.Authenticate(middleware.AuthConfig{
		Codec:      d.Codec,
		Principals: d.Principals,
		Logger:     d.Logger,
	}))
	e.Use(middleware.Authorize(matrix, d.Logger))

	throttle := func(h echo.HandlerFunc) echo.HandlerFunc { return h }
	if d.RateLimiter != nil {
		throttle = d.RateLimiter.Middleware()
	}

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Auth)
	resetHandler := handler.NewPasswordResetHandler(d.Reset)
	healthHandler := handler.NewHealthHandler(d.HealthChecks)

	// --- Users ---
	users := e.Group("/users")
	users.POST("/register", authHandler.Register, throttle)
	users.POST("/login", authHandler.Login, throttle)
	users.GET("/me", userHandler.Me)
	users.GET("/test", userHandler.TestAuthenticated)
	users.GET("/test/customer", userHandler.TestCustomer)
	users.GET("/test/administrator", userHandler.TestAdministrator)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)

	// --- Password reset ---
	reset := e.Group("/auth/reset-password")
	reset.POST("/request", resetHandler.Request, throttle)
	reset.GET("/validate", resetHandler.Validate)
	reset.POST("/confirm", resetHandler.Confirm)

	// --- Ops ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func corsConfig(frontendURL string) echomiddleware.CORSConfig {
	origins := []string{}
	for _, o := range strings.Split(frontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return echomiddleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestedWith,
			echo.HeaderAccept, echo.HeaderOrigin,
			echo.HeaderAccessControlRequestMethod, echo.HeaderAccessControlRequestHeaders,
		},
		ExposeHeaders:    []string{echo.HeaderAuthorization},
		AllowCredentials: true,
	}
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
