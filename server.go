package certledger

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"

	"github.com/go-oidfed/certledger/api"
	"github.com/go-oidfed/certledger/api/adminapi"
	"github.com/go-oidfed/certledger/storage/model"
)

// ServerConf configures the http server
type ServerConf struct {
	IPListen          string   `yaml:"ip_listen"`
	Port              int      `yaml:"port"`
	TLS               TLSConf  `yaml:"tls"`
	TrustedProxies    []string `yaml:"trusted_proxies"`
	ForwardedIPHeader string   `yaml:"forwarded_ip_header"`
	// AccessLog receives the access log; defaults to stderr
	AccessLog io.Writer `yaml:"-"`
}

// TLSConf configures TLS for the http server
type TLSConf struct {
	Enabled      bool   `yaml:"enabled"`
	RedirectHTTP bool   `yaml:"redirect_http"`
	Cert         string `yaml:"cert"`
	Key          string `yaml:"key"`
}

// FiberServerConfig is the fiber.Config that is used to init the http fiber.App
var FiberServerConfig = fiber.Config{
	ReadTimeout:    3 * time.Second,
	WriteTimeout:   20 * time.Second,
	IdleTimeout:    150 * time.Second,
	ReadBufferSize: 8192,
	ErrorHandler:   handleError,
	Network:        "tcp",
}

func handleError(c *fiber.Ctx, err error) error {
	status, body := api.StatusForError(err)
	if status >= fiber.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return c.Status(status).JSON(body)
}

// Server serves the public ledger API and, optionally, the admin API
type Server struct {
	server *fiber.App
	conf   ServerConf
}

// NewServer creates a Server for the passed Ledger. The admin API is mounted
// under /api/v1/admin unless adminOpts is nil.
func NewServer(conf ServerConf, ledger *Ledger, users model.UsersStore, adminOpts *adminapi.Options) (
	*Server, error,
) {
	fiberConf := FiberServerConfig
	if tps := conf.TrustedProxies; len(tps) > 0 {
		fiberConf.TrustedProxies = tps
		fiberConf.EnableTrustedProxyCheck = true
	}
	fiberConf.ProxyHeader = conf.ForwardedIPHeader
	server := fiber.New(fiberConf)
	server.Use(recover.New())
	server.Use(compress.New())
	loggerConf := logger.Config{}
	if conf.AccessLog != nil {
		loggerConf.Output = conf.AccessLog
	}
	server.Use(logger.New(loggerConf))
	server.Use(requestid.New())

	registerPublicAPI(server, ledger)
	if adminOpts != nil {
		if err := adminapi.Register(server.Group("/api/v1/admin"), ledger, users, adminOpts); err != nil {
			return nil, err
		}
	}
	return &Server{
		server: server,
		conf:   conf,
	}, nil
}

// App returns the underlying fiber.App
func (s *Server) App() *fiber.App {
	return s.server
}

// HttpHandlerFunc returns an http.HandlerFunc for serving all endpoints
func (s *Server) HttpHandlerFunc() http.HandlerFunc {
	return adaptor.FiberApp(s.server)
}

// Listen starts an http server at the passed address
func (s *Server) Listen(addr string) error {
	return s.server.Listen(addr)
}

// Shutdown gracefully shuts the server down
func (s *Server) Shutdown() error {
	return s.server.Shutdown()
}

// Start starts the server as configured and blocks. If TLS is enabled and
// RedirectHTTP is set, plain http requests on port 80 are redirected.
func (s *Server) Start() error {
	conf := s.conf
	addr := fmt.Sprintf("%s:%d", conf.IPListen, conf.Port)
	if !conf.TLS.Enabled {
		log.WithField("addr", addr).Info("TLS is disabled starting http server")
		return s.server.Listen(addr)
	}
	if conf.TLS.RedirectHTTP {
		httpServer := fiber.New(FiberServerConfig)
		httpServer.All(
			"*", func(ctx *fiber.Ctx) error {
				//goland:noinspection HttpUrlsUsage
				return ctx.Redirect(
					strings.Replace(ctx.Request().URI().String(), "http://", "https://", 1),
					fiber.StatusPermanentRedirect,
				)
			},
		)
		log.Info("TLS and http redirect enabled, starting redirect server on port 80")
		go func() {
			log.WithError(httpServer.Listen(fmt.Sprintf("%s:80", conf.IPListen))).Error("redirect server stopped")
		}()
	}
	log.WithField("addr", addr).Info("TLS enabled, starting https server")
	return s.server.ListenTLS(addr, conf.TLS.Cert, conf.TLS.Key)
}
