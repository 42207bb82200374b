package certledger

import (
	"github.com/gofiber/fiber/v2"

	"github.com/go-oidfed/certledger/internal/version"
	"github.com/go-oidfed/certledger/storage/model"
)

type authorizedResponse struct {
	Account    model.Account `json:"account"`
	Authorized bool          `json:"authorized"`
}

type ownerResponse struct {
	Owner model.Account `json:"owner"`
}

type verifyResponse struct {
	Holder model.Account           `json:"holder"`
	ID     model.Identifier        `json:"id"`
	Valid  bool                    `json:"valid"`
	Status model.CertificateStatus `json:"status"`
}

type countResponse struct {
	Holder model.Account `json:"holder"`
	Count  uint64        `json:"count"`
}

func holderAndID(c *fiber.Ctx) (model.Account, model.Identifier, error) {
	holder, err := model.ParseAccount(c.Params("holder"))
	if err != nil {
		return holder, model.Identifier{}, err
	}
	id, err := model.ParseIdentifier(c.Params("id"))
	return holder, id, err
}

// registerPublicAPI mounts the read-only ledger routes. Errors are rendered
// by the app's error handler.
func registerPublicAPI(r fiber.Router, ledger *Ledger) {
	r.Get(
		"/version", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"version": version.VERSION})
		},
	)

	r.Get(
		"/owner", func(c *fiber.Ctx) error {
			owner, err := ledger.Owner()
			if err != nil {
				return err
			}
			return c.JSON(ownerResponse{Owner: owner})
		},
	)

	issuers := r.Group("/issuers")
	issuers.Get(
		"/", func(c *fiber.Ctx) error {
			list, err := ledger.Issuers()
			if err != nil {
				return err
			}
			if list == nil {
				list = []model.Account{}
			}
			return c.JSON(list)
		},
	)
	issuers.Get(
		"/:account", func(c *fiber.Ctx) error {
			account, err := model.ParseAccount(c.Params("account"))
			if err != nil {
				return err
			}
			ok, err := ledger.IsAuthorized(account)
			if err != nil {
				return err
			}
			return c.JSON(
				authorizedResponse{
					Account:    account,
					Authorized: ok,
				},
			)
		},
	)

	certificates := r.Group("/certificates/:holder/:id")
	certificates.Get(
		"/", func(c *fiber.Ctx) error {
			holder, id, err := holderAndID(c)
			if err != nil {
				return err
			}
			cert, err := ledger.GetCertificateByHash(holder, id)
			if err != nil {
				return err
			}
			if !cert.Exists() {
				return model.NotFoundErrorFmt("certificate %s not found for holder %s", id.Hex(), holder.Hex())
			}
			return c.JSON(cert)
		},
	)
	certificates.Get(
		"/verify", func(c *fiber.Ctx) error {
			holder, id, err := holderAndID(c)
			if err != nil {
				return err
			}
			status, err := ledger.Status(holder, id)
			if err != nil {
				return err
			}
			return c.JSON(
				verifyResponse{
					Holder: holder,
					ID:     id,
					Valid:  status == model.StatusActive,
					Status: status,
				},
			)
		},
	)

	holders := r.Group("/holders/:holder")
	holders.Get(
		"/count", func(c *fiber.Ctx) error {
			holder, err := model.ParseAccount(c.Params("holder"))
			if err != nil {
				return err
			}
			n, err := ledger.GetCertificatesCount(holder)
			if err != nil {
				return err
			}
			return c.JSON(
				countResponse{
					Holder: holder,
					Count:  n,
				},
			)
		},
	)
	holders.Get(
		"/certificates", func(c *fiber.Ctx) error {
			holder, err := model.ParseAccount(c.Params("holder"))
			if err != nil {
				return err
			}
			certs, err := ledger.Certificates(holder)
			if err != nil {
				return err
			}
			if certs == nil {
				certs = []model.Certificate{}
			}
			return c.JSON(certs)
		},
	)
}
