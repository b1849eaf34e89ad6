package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/core/application"
	"github.com/mutqin/backend/core/offering"
	"github.com/mutqin/backend/core/session"
)

type (
	Options struct {
		Addr           string
		DisableReqLogs bool

		Conf   *core.Config
		Logger core.Logger

		AppSvc      *application.Service
		ProfileSvc  *application.ProfileService
		OfferingSvc *offering.Service
		SessionSvc  *session.Service

		// SyncStore, when set, exposes the server side of the remote mirror
		// under /v1/sync.
		SyncStore core.KVStore
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := jwtMiddleware(conf)

	registerApplicationAPI(v1, jwt, s.opts.AppSvc, s.opts.ProfileSvc, validate, translator)
	registerOfferingAPI(v1, jwt, s.opts.OfferingSvc, s.opts.AppSvc, validate, translator)
	registerSessionAPI(v1, jwt, s.opts.SessionSvc, validate, translator)
	if s.opts.SyncStore != nil {
		registerSyncAPI(v1, jwt, s.opts.SyncStore)
	}
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

// signalShutdown is called by the error handler on integrity issues.
func (s *server) signalShutdown() {
	go func() { _ = s.Stop(context.Background()) }()
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Mutqin API!")
}
