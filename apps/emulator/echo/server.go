// Package emulatorapi is a local stand-in for the remote Nurture API and its
// identity provider, for development and integration tests without network
// access. It speaks the same envelope and token protocol as the real thing,
// including the asynchronous generation of onboarding questions.
package emulatorapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/nurturehq/nurture/core"
)

type (
	Options struct {
		Addr           string
		Debug          bool
		DisableReqLogs bool
		SecretKey      []byte
		TokenTTL       time.Duration
		RefreshTTL     time.Duration

		// GenerationDelay is how long the emulator "thinks" before the next
		// onboarding question appears.
		GenerationDelay time.Duration
		Target          int // responses needed to complete onboarding
		MaxChildren     int

		Logger core.Logger
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts  *Options
		app   *echo.Echo
		store *store
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.TokenTTL == 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.RefreshTTL == 0 {
		opts.RefreshTTL = 30 * 24 * time.Hour
	}
	if opts.GenerationDelay == 0 {
		opts.GenerationDelay = 1500 * time.Millisecond
	}
	if opts.Target == 0 {
		opts.Target = 10
	}
	if opts.MaxChildren == 0 {
		opts.MaxChildren = 5
	}
	s := &server{
		opts:  opts,
		app:   echo.New(),
		store: newStore(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	// the identity surface uses Google-style `resource:action` paths that the
	// router would read as a path param; rewrite them before routing
	s.app.Pre(middleware.Rewrite(map[string]string{
		"/v1/accounts:signInWithPassword": "/identity/signin",
		"/v1/accounts:signUp":             "/identity/signup",
	}))
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	if !s.opts.Debug {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)

	// identity provider surface
	s.app.POST("/identity/signin", s.identitySignIn)
	s.app.POST("/identity/signup", s.identitySignUp)
	s.app.POST("/v1/token", s.identityRefresh)

	// Nurture API surface
	v1 := s.app.Group("/v1", s.bearerAuth)
	v1.GET("/profile", s.profileRetrieve)
	v1.PATCH("/profile", s.profileUpdate)

	cg := v1.Group("/children/:id")
	cg.GET("/onboarding", s.onboardingRetrieve)
	cg.POST("/onboarding/answers", s.onboardingAnswer)
	cg.GET("/activities/:feature", s.activityRetrieve)
	cg.PATCH("/activities/:feature", s.activityStart)
	cg.POST("/activities/:feature/complete", s.activityComplete)
	cg.POST("/chat", s.chatSend)
	cg.GET("/chat", s.chatHistory)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Addr))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Nurture emulator!")
}

// envelope helpers; business failures ride a 200 with success=false

func ok(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusOK, echo.Map{"success": true, "data": data})
}

func fail(ctx echo.Context, msg string) error {
	return ctx.JSON(http.StatusOK, echo.Map{"success": false, "message": msg})
}
