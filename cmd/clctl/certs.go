package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-oidfed/certledger/storage/model"
)

func parseHolderAndID(args []string) (model.Account, model.Identifier, error) {
	holder, err := model.ParseAccount(args[0])
	if err != nil {
		return holder, model.Identifier{}, err
	}
	id, err := model.ParseIdentifier(args[1])
	return holder, id, err
}

type issueFlags struct {
	holder     string
	fileURL    string
	score      uint16
	expireDate int64
	validFor   time.Duration
}

func (f issueFlags) expiry(now time.Time) (int64, error) {
	switch {
	case f.expireDate != 0 && f.validFor != 0:
		return 0, errors.New("--expire-date and --valid-for are mutually exclusive")
	case f.validFor != 0:
		return now.Add(f.validFor).Unix(), nil
	case f.expireDate != 0:
		return f.expireDate, nil
	default:
		return 0, errors.New("one of --expire-date or --valid-for is required")
	}
}

func newCertsCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "certs",
		Aliases: []string{"certificates"},
		Short:   "Issue, revoke and inspect certificates",
	}

	var flags issueFlags
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a certificate as the --as account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.requireCaller(); err != nil {
				return err
			}
			holder, err := model.ParseAccount(flags.holder)
			if err != nil {
				return err
			}
			expireDate, err := flags.expiry(app.ledger.Now())
			if err != nil {
				return err
			}
			id, err := app.ledger.IssueCertificate(
				app.ctx(cmd), app.caller, holder, flags.fileURL, flags.score, expireDate,
			)
			if err != nil {
				return err
			}
			app.printf("%s\n", id.Hex())
			return nil
		},
	}
	issue.Flags().StringVar(&flags.holder, "holder", "", "the holder account")
	issue.Flags().StringVar(&flags.fileURL, "file-url", "", "the url of the certificate document")
	issue.Flags().Uint16Var(&flags.score, "score", 0, "the score")
	issue.Flags().Int64Var(&flags.expireDate, "expire-date", 0, "the expiry as unix timestamp")
	issue.Flags().DurationVar(&flags.validFor, "valid-for", 0, "the validity period, e.g. 8760h")
	_ = issue.MarkFlagRequired("holder")

	cmd.AddCommand(
		issue,
		&cobra.Command{
			Use:   "revoke <holder> <id>",
			Short: "Revoke a certificate; only its issuer may do this",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				holder, id, err := parseHolderAndID(args)
				if err != nil {
					return err
				}
				if _, err = app.ledger.RevokeCertificate(app.ctx(cmd), app.caller, holder, id); err != nil {
					return err
				}
				app.printf("revoked %s\n", id.Hex())
				return nil
			},
		},
		&cobra.Command{
			Use:   "verify <holder> <id>",
			Short: "Print the status of a certificate",
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				holder, id, err := parseHolderAndID(args)
				if err != nil {
					return err
				}
				status, err := app.ledger.Status(holder, id)
				if err != nil {
					return err
				}
				app.printf("valid: %t (%s)\n", status == model.StatusActive, status)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <holder> <id>",
			Short: "Print a certificate as JSON",
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				holder, id, err := parseHolderAndID(args)
				if err != nil {
					return err
				}
				cert, err := app.ledger.GetCertificateByHash(holder, id)
				if err != nil {
					return err
				}
				return app.printJSON(cert)
			},
		},
		&cobra.Command{
			Use:   "count <holder>",
			Short: "Print the number of active certificates of a holder",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				holder, err := model.ParseAccount(args[0])
				if err != nil {
					return err
				}
				n, err := app.ledger.GetCertificatesCount(holder)
				if err != nil {
					return err
				}
				app.printf("%d\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list <holder>",
			Short: "Print all certificates of a holder as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				holder, err := model.ParseAccount(args[0])
				if err != nil {
					return err
				}
				certs, err := app.ledger.Certificates(holder)
				if err != nil {
					return err
				}
				if certs == nil {
					certs = []model.Certificate{}
				}
				return app.printJSON(certs)
			},
		},
	)
	return cmd
}
