package adminapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/go-oidfed/certledger/api"
	"github.com/go-oidfed/certledger/storage/model"
)

// registerUsers wires handlers using a UsersStore abstraction.
func registerUsers(r fiber.Router, users model.UsersStore) {
	g := r.Group("/users")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			var list []model.User
			var err error
			if q := c.Query("account"); q != "" {
				account, perr := model.ParseAccount(q)
				if perr != nil {
					return api.SendError(c, perr)
				}
				list, err = users.ListByAccount(account)
			} else {
				list, err = users.List()
			}
			if err != nil {
				return api.SendError(c, err)
			}
			return c.JSON(list)
		},
	)

	type createReq struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
		Account     string `json:"account"`
	}
	g.Post(
		"/", func(c *fiber.Ctx) error {
			var req createReq
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(api.ErrorInvalidRequest("invalid body"))
			}
			if req.Username == "" || req.Password == "" {
				return c.Status(fiber.StatusBadRequest).JSON(
					api.ErrorInvalidRequest("username and password are required"),
				)
			}
			account, err := model.ParseAccount(req.Account)
			if err != nil {
				return api.SendError(c, err)
			}
			u, err := users.Create(req.Username, req.Password, req.DisplayName, account)
			if err != nil {
				return api.SendError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(u)
		},
	)

	type updateReq struct {
		DisplayName *string `json:"display_name"`
		Password    *string `json:"password"`
		Account     *string `json:"account"`
		Disabled    *bool   `json:"disabled"`
	}
	g.Put(
		"/:username", func(c *fiber.Ctx) error {
			var req updateReq
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(api.ErrorInvalidRequest("invalid body"))
			}
			upd := model.UserUpdate{
				DisplayName: req.DisplayName,
				Password:    req.Password,
				Disabled:    req.Disabled,
			}
			if req.Account != nil {
				a, err := model.ParseAccount(*req.Account)
				if err != nil {
					return api.SendError(c, err)
				}
				upd.Account = &a
			}
			u, err := users.Update(c.Params("username"), upd)
			if err != nil {
				return api.SendError(c, err)
			}
			return c.JSON(u)
		},
	)

	g.Get(
		"/:username", func(c *fiber.Ctx) error {
			u, err := users.Get(c.Params("username"))
			if err != nil {
				var notFound model.NotFoundError
				if errors.As(err, &notFound) {
					return c.Status(fiber.StatusNotFound).JSON(api.ErrorNotFound("user not found"))
				}
				return api.SendError(c, err)
			}
			return c.JSON(u)
		},
	)

	g.Delete(
		"/:username", func(c *fiber.Ctx) error {
			if err := users.Delete(c.Params("username")); err != nil {
				return api.SendError(c, err)
			}
			return c.SendStatus(fiber.StatusNoContent)
		},
	)
}
