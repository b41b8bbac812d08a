package router

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/auth"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/user"
	"github.com/ovaphlow/pitchfork/service-profile-admin/pkg/utilities"
)

// Deps are the services the routes are mounted on.
type Deps struct {
	Users    *user.UserService
	Profiles *profile.Service
	Tokens   *auth.TokenService
	Auth     auth.Config
	Origins  []string
}

// OriginsFromEnv splits CORS_ORIGIN on commas, dropping trailing slashes.
func OriginsFromEnv() []string {
	raw := os.Getenv("CORS_ORIGIN")
	if raw == "" {
		raw = "http://localhost:3000"
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware tags each request with an X-Request-ID and logs it at debug level.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = utilities.NewRequestID()
			}
			w.Header().Set("X-Request-ID", reqID)
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// HSTS only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts the API on a standard library ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	userHandler := user.NewHandler(d.Users, logger)
	authHandler := auth.NewHandler(d.Tokens, d.Users, d.Profiles, d.Auth, logger)
	profileHandler := profile.NewHandler(d.Profiles, d.Users, logger)

	signedIn := auth.RequireSession(d.Tokens, d.Users, d.Auth.CookieName, logger)
	superUser := auth.RequireSuperUser(d.Profiles, logger)

	mux.HandleFunc("POST /api/auth/signup", userHandler.Signup)
	mux.HandleFunc("POST /api/auth/password", userHandler.ChangePassword)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/auth/session", signedIn(http.HandlerFunc(authHandler.Session)))
	mux.HandleFunc("GET /.well-known/jwks.json", authHandler.JWKS)

	mux.Handle("GET /api/profile", signedIn(http.HandlerFunc(profileHandler.GetOwn)))
	mux.Handle("PUT /api/profile", signedIn(http.HandlerFunc(profileHandler.UpdateOwn)))
	mux.Handle("GET /api/users", signedIn(superUser(http.HandlerFunc(profileHandler.ListDirectory))))

	withCORS := cors.Handler(cors.Options{
		AllowedOrigins:   d.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return LoggingMiddleware(logger)(withCORS(SecurityHeadersMiddleware()(mux)))
}
