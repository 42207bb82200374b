package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/go-oidfed/certledger"
	"github.com/go-oidfed/certledger/cmd/certledger/config"
	"github.com/go-oidfed/certledger/storage/model"
)

// cli holds the state shared by all clctl commands
type cli struct {
	configFile string
	as         string

	ledger *certledger.Ledger
	caller model.Account
	out    io.Writer
}

func (app *cli) open(*cobra.Command, []string) error {
	if app.as != "" {
		var err error
		app.caller, err = model.ParseAccount(app.as)
		if err != nil {
			return err
		}
	}
	if app.ledger != nil {
		return nil
	}
	config.Load(app.configFile)
	c := config.Get()
	backs, err := config.LoadStorageBackends(c.Storage, c.API.Admin.Argon2idParams)
	if err != nil {
		return err
	}
	publisher, err := config.NewPublisher(c.Events)
	if err != nil {
		return err
	}
	app.ledger = certledger.NewLedger(backs.Ledger, publisher)
	return nil
}

func (app *cli) close() error {
	if app.ledger == nil {
		return nil
	}
	return app.ledger.Close()
}

func (app *cli) ctx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (app *cli) requireCaller() error {
	if app.caller == model.NullAccount {
		return errors.New("this command needs a caller, set it with --as")
	}
	return nil
}

func (app *cli) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(app.out, format, args...)
}

func (app *cli) printJSON(v any) error {
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return errors.WithStack(enc.Encode(v))
}

func newRootCmd(app *cli) *cobra.Command {
	root := &cobra.Command{
		Use:               "clctl",
		Short:             "clctl manages a certledger",
		Long:              "clctl operates directly on the storage backend of a certledger as configured in its config file",
		SilenceUsage:      true,
		PersistentPreRunE: app.open,
	}
	root.PersistentFlags().StringVarP(&app.configFile, "config", "c", "", "the config file to use")
	root.PersistentFlags().StringVar(&app.as, "as", "", "the account to act as")
	root.SetOut(app.out)

	root.AddCommand(
		&cobra.Command{
			Use:   "deploy",
			Short: "Deploy the issuer registry; the --as account becomes owner and first issuer",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := app.requireCaller(); err != nil {
					return err
				}
				if err := app.ledger.Deploy(app.ctx(cmd), app.caller); err != nil {
					return err
				}
				app.printf("deployed issuer registry, owner %s\n", app.caller.Hex())
				return nil
			},
		},
		newIssuersCmd(app),
		newOwnerCmd(app),
		newCertsCmd(app),
	)
	return root
}

func main() {
	app := &cli{out: os.Stdout}
	err := newRootCmd(app).Execute()
	if cerr := app.close(); cerr != nil {
		log.WithError(cerr).Error("error closing ledger")
	}
	if err != nil {
		os.Exit(1)
	}
}
