package main

import (
	arrayOperations "github.com/adam-hanna/arrayOperations"
	"github.com/spf13/cobra"
	"tideland.dev/go/slices"

	"github.com/go-oidfed/certledger/storage/model"
)

func parseAccounts(args []string) ([]model.Account, error) {
	accounts := make([]model.Account, len(args))
	for i, a := range args {
		var err error
		if accounts[i], err = model.ParseAccount(a); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

func newIssuersCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issuers",
		Short: "Manage the issuer registry",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <account>",
			Short: "Authorize an issuer",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				issuer, err := model.ParseAccount(args[0])
				if err != nil {
					return err
				}
				if err = app.ledger.AddIssuer(app.ctx(cmd), app.caller, issuer); err != nil {
					return err
				}
				app.printf("added issuer %s\n", issuer.Hex())
				return nil
			},
		},
		&cobra.Command{
			Use:   "revoke <account>",
			Short: "Revoke an issuer",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				issuer, err := model.ParseAccount(args[0])
				if err != nil {
					return err
				}
				if err = app.ledger.RevokeIssuer(app.ctx(cmd), app.caller, issuer); err != nil {
					return err
				}
				app.printf("revoked issuer %s\n", issuer.Hex())
				return nil
			},
		},
		&cobra.Command{
			Use:   "check <account>",
			Short: "Check whether an account is an authorized issuer",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				account, err := model.ParseAccount(args[0])
				if err != nil {
					return err
				}
				ok, err := app.ledger.IsAuthorized(account)
				if err != nil {
					return err
				}
				app.printf("%s authorized: %t\n", account.Hex(), ok)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the authorized issuers",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				issuers, err := app.ledger.Issuers()
				if err != nil {
					return err
				}
				for _, i := range issuers {
					app.printf("%s\n", i.Hex())
				}
				return nil
			},
		},
		newIssuersSyncCmd(app),
	)
	return cmd
}

func newIssuersSyncCmd(app *cli) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync <account>...",
		Short: "Add and revoke issuers so that exactly the passed accounts are authorized",
		Long: "Add and revoke issuers so that exactly the passed accounts are authorized.\n" +
			"The calling account is never revoked.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desired, err := parseAccounts(args)
			if err != nil {
				return err
			}
			desired = slices.Unique(desired)
			current, err := app.ledger.Issuers()
			if err != nil {
				return err
			}
			plan := planSync(current, desired, app.caller)
			for _, a := range plan.unchanged {
				app.printf("keep   %s\n", a.Hex())
			}
			for _, a := range plan.add {
				app.printf("add    %s\n", a.Hex())
			}
			for _, a := range plan.revoke {
				app.printf("revoke %s\n", a.Hex())
			}
			if dryRun {
				return nil
			}
			ctx := app.ctx(cmd)
			for _, a := range plan.add {
				if err = app.ledger.AddIssuer(ctx, app.caller, a); err != nil {
					return err
				}
			}
			for _, a := range plan.revoke {
				if err = app.ledger.RevokeIssuer(ctx, app.caller, a); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only print the changes")
	return cmd
}

type syncPlan struct {
	add       []model.Account
	revoke    []model.Account
	unchanged []model.Account
}

// planSync computes the changes that turn current into desired. self is
// kept authorized so that a sync cannot lock its caller out.
func planSync(current, desired []model.Account, self model.Account) syncPlan {
	plan := syncPlan{
		add:       slices.Subtract(desired, current),
		revoke:    slices.Subtract(current, desired),
		unchanged: arrayOperations.Intersect(current, desired),
	}
	for i, a := range plan.revoke {
		if a == self {
			plan.revoke = append(plan.revoke[:i], plan.revoke[i+1:]...)
			plan.unchanged = append(plan.unchanged, a)
			break
		}
	}
	return plan
}
