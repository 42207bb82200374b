package adminapi

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/go-oidfed/certledger/api"
	"github.com/go-oidfed/certledger/storage/model"
)

// HeaderCaller names the ledger account a request acts as while no admin
// users exist
const HeaderCaller = "X-Ledger-Caller"

const localsCaller = "caller"

// authMiddleware resolves the caller account of admin API requests.
// If there are no users in storage, the caller is taken from the
// X-Ledger-Caller header.
// If there is at least one user, it requires HTTP Basic authentication and
// the caller is the account bound to the authenticated user.
func authMiddleware(users model.UsersStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var count int64
		if users != nil {
			var err error
			count, err = users.Count()
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(api.ErrorServerError(err.Error()))
			}
		}
		if count == 0 {
			return headerCaller(c)
		}

		username, password, ok := parseBasicAuth(c)
		if !ok {
			c.Set(fiber.HeaderWWWAuthenticate, "Basic realm=admin")
			return c.Status(fiber.StatusUnauthorized).JSON(api.ErrorUnauthorized("missing credentials"))
		}
		account, err := users.Authenticate(username, password)
		if err != nil {
			c.Set(fiber.HeaderWWWAuthenticate, "Basic realm=admin")
			return c.Status(fiber.StatusUnauthorized).JSON(api.ErrorUnauthorized("invalid credentials"))
		}
		c.Locals(localsCaller, account)
		return c.Next()
	}
}

func headerCaller(c *fiber.Ctx) error {
	if h := c.Get(HeaderCaller); h != "" {
		account, err := model.ParseAccount(h)
		if err != nil {
			return api.SendError(c, err)
		}
		c.Locals(localsCaller, account)
	}
	return c.Next()
}

// caller returns the account the request acts as; NullAccount if none
func caller(c *fiber.Ctx) model.Account {
	if a, ok := c.Locals(localsCaller).(model.Account); ok {
		return a
	}
	return model.NullAccount
}

// parseBasicAuth extracts Basic auth credentials from request headers
func parseBasicAuth(c *fiber.Ctx) (username, password string, ok bool) {
	auth := c.Get(fiber.HeaderAuthorization)
	const prefix = "Basic "
	if !strings.HasPrefix(auth, prefix) {
		return "", "", false
	}
	b, err := base64.StdEncoding.DecodeString(auth[len(prefix):])
	if err != nil {
		return "", "", false
	}
	username, password, ok = strings.Cut(string(b), ":")
	return
}
