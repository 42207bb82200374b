package registry

import (
	"github.com/go-oidfed/certledger/events"
	"github.com/go-oidfed/certledger/storage/model"
)

// CertificateRegistry stores certificates keyed by (holder, identifier) and
// keeps the number of active certificates per holder.
type CertificateRegistry struct {
	state     model.CertificateState
	authority IssuerAuthority
}

// NewCertificateRegistry returns a CertificateRegistry operating on the passed
// state. The authority is only ever queried, never modified.
func NewCertificateRegistry(state model.CertificateState, authority IssuerAuthority) *CertificateRegistry {
	return &CertificateRegistry{
		state:     state,
		authority: authority,
	}
}

// IssueCertificate creates a certificate for holder issued by the caller and
// returns its identifier.
func (r *CertificateRegistry) IssueCertificate(
	call *Call, holder model.Account, fileURL string, score uint16, expireDate int64,
) (model.Identifier, error) {
	authorized, err := r.authority.IsAuthorized(call.Caller)
	if err != nil {
		return model.Identifier{}, err
	}
	if !authorized {
		return model.Identifier{}, model.AuthorizationErrorFmt(
			"account %s is not an authorized issuer", call.Caller.Hex(),
		)
	}
	if holder == model.NullAccount {
		return model.Identifier{}, model.ValidationError("holder must not be the null account")
	}
	if expireDate <= call.Now {
		return model.Identifier{}, model.ValidationErrorFmt(
			"expire date %d must be after the issue date %d", expireDate, call.Now,
		)
	}
	seq, err := r.state.Sequence(holder)
	if err != nil {
		return model.Identifier{}, err
	}
	active, err := r.state.ActiveCount(holder)
	if err != nil {
		return model.Identifier{}, err
	}
	id := ComputeIdentifier(holder, call.Caller, fileURL, score, call.Now, expireDate, seq)
	existing, err := r.state.Certificate(holder, id)
	if err != nil {
		return model.Identifier{}, err
	}
	if existing != nil {
		return model.Identifier{}, model.CollisionErrorFmt(
			"certificate %s already exists for holder %s", id.Hex(), holder.Hex(),
		)
	}

	cert := model.Certificate{
		ID:         id,
		Holder:     holder,
		Issuer:     call.Caller,
		FileURL:    fileURL,
		Score:      score,
		IssueDate:  call.Now,
		ExpireDate: expireDate,
		Sequence:   seq,
	}
	if err = r.state.Insert(cert); err != nil {
		return model.Identifier{}, err
	}
	if err = r.state.SetActiveCount(holder, active+1); err != nil {
		return model.Identifier{}, err
	}
	if err = r.state.SetSequence(holder, seq+1); err != nil {
		return model.Identifier{}, err
	}
	call.Emit(
		events.CertificateIssued{
			Holder:     holder,
			Issuer:     call.Caller,
			FileURL:    fileURL,
			IssueDate:  call.Now,
			ExpireDate: expireDate,
			ID:         id,
		},
	)
	return id, nil
}

// RevokeCertificate revokes the certificate at (holder, id). Only the issuer
// recorded at issuance may revoke, whether or not it is still authorized.
// Revoking an already revoked certificate returns false and an
// IdempotencyError.
func (r *CertificateRegistry) RevokeCertificate(call *Call, holder model.Account, id model.Identifier) (bool, error) {
	cert, err := r.state.Certificate(holder, id)
	if err != nil {
		return false, err
	}
	if cert == nil || cert.Issuer != call.Caller {
		return false, model.AuthorizationError("only the issuer of this certificate can call this function")
	}
	if cert.Revoked {
		return false, model.IdempotencyErrorFmt("certificate %s is already revoked", id.Hex())
	}
	active, err := r.state.ActiveCount(holder)
	if err != nil {
		return false, err
	}
	if err = r.state.MarkRevoked(holder, id); err != nil {
		return false, err
	}
	if active > 0 {
		active--
	}
	if err = r.state.SetActiveCount(holder, active); err != nil {
		return false, err
	}
	call.Emit(
		events.RevokedCertificate{
			Issuer: cert.Issuer,
			Holder: holder,
			ID:     id,
		},
	)
	return true, nil
}

// VerifyCertificate reports whether the certificate exists, is not revoked
// and has not expired at now (unix seconds).
func (r *CertificateRegistry) VerifyCertificate(holder model.Account, id model.Identifier, now int64) (bool, error) {
	cert, err := r.GetCertificateByHash(holder, id)
	if err != nil {
		return false, err
	}
	return cert.Valid(now), nil
}

// Status returns the derived status of the certificate at now (unix seconds)
func (r *CertificateRegistry) Status(holder model.Account, id model.Identifier, now int64) (
	model.CertificateStatus, error,
) {
	cert, err := r.GetCertificateByHash(holder, id)
	if err != nil {
		return model.StatusUnknown, err
	}
	return cert.Status(now), nil
}

// GetCertificateByHash returns the stored certificate, or the zero
// Certificate if there is none.
func (r *CertificateRegistry) GetCertificateByHash(holder model.Account, id model.Identifier) (
	model.Certificate, error,
) {
	cert, err := r.state.Certificate(holder, id)
	if err != nil || cert == nil {
		return model.Certificate{}, err
	}
	return *cert, nil
}

// GetCertificatesCount returns the number of non-revoked certificates of the holder
func (r *CertificateRegistry) GetCertificatesCount(holder model.Account) (uint64, error) {
	return r.state.ActiveCount(holder)
}

// Certificates returns all certificates of the holder, revoked ones included
func (r *CertificateRegistry) Certificates(holder model.Account) ([]model.Certificate, error) {
	return r.state.Certificates(holder)
}
