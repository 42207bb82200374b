package registry

import (
	"github.com/go-oidfed/certledger/events"
	"github.com/go-oidfed/certledger/storage/model"
)

// IssuerAuthority answers whether an account may issue certificates.
type IssuerAuthority interface {
	IsAuthorized(account model.Account) (bool, error)
}

// IssuerRegistry maintains the set of authorized issuers under the control of
// a single owner.
type IssuerRegistry struct {
	state model.IssuerState
}

// NewIssuerRegistry returns an IssuerRegistry operating on the passed state
func NewIssuerRegistry(state model.IssuerState) *IssuerRegistry {
	return &IssuerRegistry{state: state}
}

// Deploy runs the registry genesis: the caller becomes the owner and the
// first authorized issuer.
func (r *IssuerRegistry) Deploy(call *Call) error {
	deployed, err := r.state.Deployed()
	if err != nil {
		return err
	}
	if deployed {
		return model.AlreadyExistsError("issuer registry is already deployed")
	}
	if call.Caller == model.NullAccount {
		return model.ValidationError("the null account cannot deploy the issuer registry")
	}
	if err = r.state.MarkDeployed(); err != nil {
		return err
	}
	if err = r.state.SetOwner(call.Caller); err != nil {
		return err
	}
	if err = r.state.AddIssuer(call.Caller); err != nil {
		return err
	}
	call.Emit(
		events.OwnershipTransferred{
			PreviousOwner: model.NullAccount,
			NewOwner:      call.Caller,
		},
	)
	return nil
}

// onlyOwner fails unless the caller is the current owner. A renounced
// registry has the null account as owner and rejects everyone.
func (r *IssuerRegistry) onlyOwner(call *Call) (model.Account, error) {
	owner, err := r.state.Owner()
	if err != nil {
		return model.NullAccount, err
	}
	if owner == model.NullAccount || call.Caller != owner {
		return owner, model.AuthorizationErrorFmt("unauthorized account %s: caller is not the owner", call.Caller.Hex())
	}
	return owner, nil
}

// AddIssuer authorizes an account to issue certificates.
func (r *IssuerRegistry) AddIssuer(call *Call, issuer model.Account) error {
	if _, err := r.onlyOwner(call); err != nil {
		return err
	}
	if issuer == model.NullAccount {
		return model.ValidationError("the null account cannot be an issuer")
	}
	member, err := r.state.IsIssuer(issuer)
	if err != nil {
		return err
	}
	if member {
		return model.AlreadyExistsErrorFmt("issuer %s already exists", issuer.Hex())
	}
	if err = r.state.AddIssuer(issuer); err != nil {
		return err
	}
	call.Emit(events.IssuerAdded{Issuer: issuer})
	return nil
}

// RevokeIssuer removes an account from the authorized issuers. Certificates
// it issued stay valid and can still be revoked by it.
func (r *IssuerRegistry) RevokeIssuer(call *Call, issuer model.Account) error {
	if _, err := r.onlyOwner(call); err != nil {
		return err
	}
	member, err := r.state.IsIssuer(issuer)
	if err != nil {
		return err
	}
	if !member {
		return model.NotFoundErrorFmt("issuer %s is not authorized", issuer.Hex())
	}
	if err = r.state.RemoveIssuer(issuer); err != nil {
		return err
	}
	call.Emit(events.IssuerRevoked{Issuer: issuer})
	return nil
}

// Deployed reports whether Deploy has run
func (r *IssuerRegistry) Deployed() (bool, error) {
	return r.state.Deployed()
}

// IsAuthorized implements the IssuerAuthority interface
func (r *IssuerRegistry) IsAuthorized(account model.Account) (bool, error) {
	return r.state.IsIssuer(account)
}

// Owner returns the current owner
func (r *IssuerRegistry) Owner() (model.Account, error) {
	return r.state.Owner()
}

// Issuers returns all authorized issuers
func (r *IssuerRegistry) Issuers() ([]model.Account, error) {
	return r.state.Issuers()
}

// TransferOwnership hands control of the registry to newOwner. The issuer set
// is left as is.
func (r *IssuerRegistry) TransferOwnership(call *Call, newOwner model.Account) error {
	owner, err := r.onlyOwner(call)
	if err != nil {
		return err
	}
	if newOwner == model.NullAccount {
		return model.ValidationErrorFmt("invalid owner %s", newOwner.Hex())
	}
	if err = r.state.SetOwner(newOwner); err != nil {
		return err
	}
	call.Emit(
		events.OwnershipTransferred{
			PreviousOwner: owner,
			NewOwner:      newOwner,
		},
	)
	return nil
}

// RenounceOwnership sets the owner to the null account. This cannot be
// undone: no issuer can ever be added or revoked afterwards.
func (r *IssuerRegistry) RenounceOwnership(call *Call) error {
	owner, err := r.onlyOwner(call)
	if err != nil {
		return err
	}
	if err = r.state.SetOwner(model.NullAccount); err != nil {
		return err
	}
	call.Emit(
		events.OwnershipTransferred{
			PreviousOwner: owner,
			NewOwner:      model.NullAccount,
		},
	)
	return nil
}
