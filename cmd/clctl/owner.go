package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-oidfed/certledger/storage/model"
)

func newOwnerCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Show or change the owner of the issuer registry",
	}

	var yes bool
	renounce := &cobra.Command{
		Use:   "renounce",
		Short: "Give up ownership; afterwards nobody can add or revoke issuers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New(
					"renouncing ownership permanently disables issuer management; pass --yes to confirm",
				)
			}
			if err := app.ledger.RenounceOwnership(app.ctx(cmd), app.caller); err != nil {
				return err
			}
			app.printf("ownership renounced\n")
			return nil
		},
	}
	renounce.Flags().BoolVar(&yes, "yes", false, "confirm renouncing ownership")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the current owner",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				owner, err := app.ledger.Owner()
				if err != nil {
					return err
				}
				app.printf("%s\n", owner.Hex())
				return nil
			},
		},
		&cobra.Command{
			Use:   "transfer <account>",
			Short: "Transfer ownership to another account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				newOwner, err := model.ParseAccount(args[0])
				if err != nil {
					return err
				}
				if err = app.ledger.TransferOwnership(app.ctx(cmd), app.caller, newOwner); err != nil {
					return err
				}
				app.printf("ownership transferred to %s\n", newOwner.Hex())
				return nil
			},
		},
		renounce,
	)
	return cmd
}
