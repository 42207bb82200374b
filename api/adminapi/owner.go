package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/go-oidfed/certledger/api"
	"github.com/go-oidfed/certledger/storage/model"
)

type ownerBody struct {
	Owner model.Account `json:"owner"`
}

// registerOwner wires the ownership handlers.
func registerOwner(r fiber.Router, ledger Ledger) {
	g := r.Group("/owner")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			owner, err := ledger.Owner()
			if err != nil {
				return api.SendError(c, err)
			}
			return c.JSON(ownerBody{Owner: owner})
		},
	)

	g.Put(
		"/", func(c *fiber.Ctx) error {
			newOwner, err := parseAccountBody(c, "owner")
			if err != nil {
				return api.SendError(c, err)
			}
			if err = ledger.TransferOwnership(c.UserContext(), caller(c), newOwner); err != nil {
				return api.SendError(c, err)
			}
			return c.JSON(ownerBody{Owner: newOwner})
		},
	)

	g.Delete(
		"/", func(c *fiber.Ctx) error {
			if err := ledger.RenounceOwnership(c.UserContext(), caller(c)); err != nil {
				return api.SendError(c, err)
			}
			return c.SendStatus(fiber.StatusNoContent)
		},
	)
}
