package config

import (
	"github.com/pkg/errors"

	"github.com/go-oidfed/certledger/storage/model"
)

// ledgerConf holds the configuration under the `ledger` key.
//
// The deployer becomes owner and first issuer when the server starts on an
// empty backend. It is ignored if the issuer registry is already deployed.
type ledgerConf struct {
	Deployer string `yaml:"deployer"`

	deployer model.Account
}

func (l *ledgerConf) validate() error {
	if l.Deployer == "" {
		return nil
	}
	a, err := model.ParseAccount(l.Deployer)
	if err != nil {
		return errors.Wrap(err, "deployer")
	}
	if a == model.NullAccount {
		return errors.New("deployer must not be the null account")
	}
	l.deployer = a
	return nil
}

// DeployerAccount returns the parsed deployer and whether one is configured
func (l ledgerConf) DeployerAccount() (model.Account, bool) {
	return l.deployer, l.deployer != model.NullAccount
}
