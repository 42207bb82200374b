package adminapi

import (
	"math"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/go-oidfed/certledger/api"
	"github.com/go-oidfed/certledger/storage/model"
)

type issueRequest struct {
	Holder  string `json:"holder"`
	FileURL string `json:"file_url"`
	Score   int64  `json:"score"`
	// ExpireDate is the expiry in unix seconds
	ExpireDate int64 `json:"expire_date"`
	// ValidFor is an alternative to ExpireDate, e.g. "8760h"
	ValidFor string `json:"valid_for"`
}

func (req issueRequest) validate(now time.Time) (model.Account, uint16, int64, error) {
	holder, err := model.ParseAccount(req.Holder)
	if err != nil {
		return holder, 0, 0, err
	}
	if req.Score < 0 || req.Score > math.MaxUint16 {
		return holder, 0, 0, model.ValidationErrorFmt("score %d out of range [0, %d]", req.Score, math.MaxUint16)
	}
	expireDate := req.ExpireDate
	if req.ValidFor != "" {
		if expireDate != 0 {
			return holder, 0, 0, model.ValidationError("expire_date and valid_for are mutually exclusive")
		}
		d, err := time.ParseDuration(req.ValidFor)
		if err != nil {
			return holder, 0, 0, model.ValidationErrorFmt("invalid valid_for: %s", err)
		}
		expireDate = now.Add(d).Unix()
	}
	if expireDate == 0 {
		return holder, 0, 0, model.ValidationError("expire_date or valid_for is required")
	}
	return holder, uint16(req.Score), expireDate, nil
}

type revokeResponse struct {
	Revoked bool `json:"revoked"`
}

// registerCertificates wires the issuer-gated certificate handlers.
func registerCertificates(r fiber.Router, ledger Ledger) {
	g := r.Group("/certificates")

	g.Post(
		"/", func(c *fiber.Ctx) error {
			var req issueRequest
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(api.ErrorInvalidRequest("invalid body"))
			}
			holder, score, expireDate, err := req.validate(ledger.Now())
			if err != nil {
				return api.SendError(c, err)
			}
			id, err := ledger.IssueCertificate(c.UserContext(), caller(c), holder, req.FileURL, score, expireDate)
			if err != nil {
				return api.SendError(c, err)
			}
			cert, err := ledger.GetCertificateByHash(holder, id)
			if err != nil {
				return api.SendError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(cert)
		},
	)

	g.Delete(
		"/:holder/:id", func(c *fiber.Ctx) error {
			holder, err := model.ParseAccount(c.Params("holder"))
			if err != nil {
				return api.SendError(c, err)
			}
			id, err := model.ParseIdentifier(c.Params("id"))
			if err != nil {
				return api.SendError(c, err)
			}
			revoked, err := ledger.RevokeCertificate(c.UserContext(), caller(c), holder, id)
			if err != nil {
				return api.SendError(c, err)
			}
			return c.JSON(revokeResponse{Revoked: revoked})
		},
	)
}
