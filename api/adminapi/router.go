package adminapi

import (
	"context"
	"embed"
	"net"
	neturl "net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-oidfed/certledger/storage/model"
)

//go:embed swagger.html openapi.yaml
var assets embed.FS

// Ledger is the subset of the ledger the admin API operates on
type Ledger interface {
	AddIssuer(ctx context.Context, caller, issuer model.Account) error
	RevokeIssuer(ctx context.Context, caller, issuer model.Account) error
	Owner() (model.Account, error)
	TransferOwnership(ctx context.Context, caller, newOwner model.Account) error
	RenounceOwnership(ctx context.Context, caller model.Account) error
	IssueCertificate(
		ctx context.Context, caller, holder model.Account, fileURL string, score uint16, expireDate int64,
	) (model.Identifier, error)
	RevokeCertificate(ctx context.Context, caller, holder model.Account, id model.Identifier) (bool, error)
	GetCertificateByHash(holder model.Account, id model.Identifier) (model.Certificate, error)
	Now() time.Time
}

// Options controls optional features of the admin API registration.
type Options struct {
	// UsersEnabled controls whether the user management API is mounted.
	UsersEnabled bool
	// ServerURL is written to the servers section of the served openapi document
	ServerURL string
	// Port, when > 0, is used to adapt the ServerURL to the admin API port for docs.
	Port int
}

// Register mounts all admin API routes under the provided group.
func Register(r fiber.Router, ledger Ledger, users model.UsersStore, opts *Options) error {
	if opts == nil {
		opts = &Options{UsersEnabled: true}
	}
	serverURL := opts.ServerURL
	if opts.Port > 0 {
		serverURL = adaptServerURLPort(serverURL, opts.Port)
	}

	openapiRaw, err := assets.ReadFile("openapi.yaml")
	if err != nil {
		return errors.Wrap(err, "adminapi: failed to read openapi.yaml")
	}
	openapiData := prepareOpenAPI(openapiRaw, serverURL)
	swaggerHTML, err := assets.ReadFile("swagger.html")
	if err != nil {
		return errors.Wrap(err, "adminapi: failed to read swagger.html")
	}

	r.Get(
		"/openapi.yaml", func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderContentType, "application/yaml")
			return c.Send(openapiData)
		},
	)
	r.Get(
		"/docs", func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderContentType, fiber.MIMETextHTML)
			return c.Send(swaggerHTML)
		},
	)

	r.Use(authMiddleware(users))

	r.Get(
		"/whoami", func(c *fiber.Ctx) error {
			return c.JSON(accountBody{Account: caller(c)})
		},
	)
	registerIssuers(r, ledger)
	registerOwner(r, ledger)
	registerCertificates(r, ledger)
	if opts.UsersEnabled && users != nil {
		registerUsers(r, users)
	}
	return nil
}

// adaptServerURLPort updates or adds the port to the provided serverURL.
// If the input is invalid, it returns the original serverURL.
func adaptServerURLPort(serverURL string, port int) string {
	if len(serverURL) == 0 || port <= 0 {
		return serverURL
	}
	u, err := neturl.Parse(serverURL)
	if err != nil || u.Host == "" {
		return serverURL
	}
	name, _, err := net.SplitHostPort(u.Host)
	if err != nil {
		name = u.Host
	}
	u.Host = net.JoinHostPort(name, strconv.Itoa(port))
	return u.String()
}

// prepareOpenAPI points the servers section of the OpenAPI document to
// serverURL and declares HTTP Basic as global security requirement unless the
// document has its own. The document is returned unchanged if it cannot be
// parsed.
func prepareOpenAPI(doc []byte, serverURL string) []byte {
	var full map[string]any
	if err := yaml.Unmarshal(doc, &full); err != nil {
		return doc
	}
	if serverURL != "" {
		full["servers"] = []map[string]any{
			{
				"url":         serverURL,
				"description": "This instance",
			},
		}
	}
	components, _ := full["components"].(map[string]any)
	if components == nil {
		components = map[string]any{}
		full["components"] = components
	}
	securitySchemes, _ := components["securitySchemes"].(map[string]any)
	if securitySchemes == nil {
		securitySchemes = map[string]any{}
		components["securitySchemes"] = securitySchemes
	}
	if _, exists := securitySchemes["basicAuth"]; !exists {
		securitySchemes["basicAuth"] = map[string]any{
			"type":   "http",
			"scheme": "basic",
		}
	}
	if _, exists := full["security"]; !exists {
		full["security"] = []map[string]any{{"basicAuth": []any{}}}
	}
	res, err := yaml.Marshal(full)
	if err != nil {
		return doc
	}
	return res
}
