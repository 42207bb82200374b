package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/go-oidfed/certledger/api"
	"github.com/go-oidfed/certledger/storage/model"
)

type accountBody struct {
	Account model.Account `json:"account"`
}

func parseAccountBody(c *fiber.Ctx, field string) (model.Account, error) {
	var req map[string]string
	if err := c.BodyParser(&req); err != nil {
		return model.NullAccount, model.ValidationError("invalid body")
	}
	v, ok := req[field]
	if !ok || v == "" {
		return model.NullAccount, model.ValidationErrorFmt("%s is required", field)
	}
	return model.ParseAccount(v)
}

// registerIssuers wires the owner-gated issuer management handlers.
func registerIssuers(r fiber.Router, ledger Ledger) {
	g := r.Group("/issuers")

	g.Post(
		"/", func(c *fiber.Ctx) error {
			issuer, err := parseAccountBody(c, "account")
			if err != nil {
				return api.SendError(c, err)
			}
			if err = ledger.AddIssuer(c.UserContext(), caller(c), issuer); err != nil {
				return api.SendError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(accountBody{Account: issuer})
		},
	)

	g.Delete(
		"/:account", func(c *fiber.Ctx) error {
			issuer, err := model.ParseAccount(c.Params("account"))
			if err != nil {
				return api.SendError(c, err)
			}
			if err = ledger.RevokeIssuer(c.UserContext(), caller(c), issuer); err != nil {
				return api.SendError(c, err)
			}
			return c.SendStatus(fiber.StatusNoContent)
		},
	)
}
