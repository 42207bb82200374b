package storage

import (
	"sort"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/go-oidfed/certledger/storage/model"
)

// ledgerState implements model.State on a *gorm.DB, which is a transaction
// for updates.
type ledgerState struct {
	db       *gorm.DB
	kv       *KeyValueStorage
	readOnly bool
}

func newLedgerState(db *gorm.DB, readOnly bool) ledgerState {
	return ledgerState{
		db:       db,
		kv:       &KeyValueStorage{db: db},
		readOnly: readOnly,
	}
}

// Issuers implements the model.State interface
func (s ledgerState) Issuers() model.IssuerState {
	return IssuersStorage(s)
}

// Certificates implements the model.State interface
func (s ledgerState) Certificates() model.CertificateState {
	return CertificatesStorage(s)
}

func (s ledgerState) writable() error {
	if s.readOnly {
		return errReadOnly
	}
	return nil
}

// IssuersStorage implements model.IssuerState using GORM. Owner and
// deployment flag live in the key-value table; members in their own table.
type IssuersStorage ledgerState

// Deployed implements the model.IssuerState interface
func (s IssuersStorage) Deployed() (bool, error) {
	var deployed bool
	_, err := s.kv.GetAs(model.KeyValueScopeIssuerRegistry, model.KeyValueKeyDeployed, &deployed)
	return deployed, err
}

// MarkDeployed implements the model.IssuerState interface
func (s IssuersStorage) MarkDeployed() error {
	if err := ledgerState(s).writable(); err != nil {
		return err
	}
	return s.kv.SetAny(model.KeyValueScopeIssuerRegistry, model.KeyValueKeyDeployed, true)
}

// Owner implements the model.IssuerState interface
func (s IssuersStorage) Owner() (model.Account, error) {
	var owner string
	found, err := s.kv.GetAs(model.KeyValueScopeIssuerRegistry, model.KeyValueKeyOwner, &owner)
	if err != nil || !found {
		return model.NullAccount, err
	}
	return model.ParseAccount(owner)
}

// SetOwner implements the model.IssuerState interface
func (s IssuersStorage) SetOwner(owner model.Account) error {
	if err := ledgerState(s).writable(); err != nil {
		return err
	}
	return s.kv.SetAny(model.KeyValueScopeIssuerRegistry, model.KeyValueKeyOwner, owner.Hex())
}

// IsIssuer implements the model.IssuerState interface
func (s IssuersStorage) IsIssuer(account model.Account) (bool, error) {
	var count int64
	err := s.db.Model(&model.IssuerMembership{}).Where("account = ?", account.Hex()).Count(&count).Error
	return count > 0, err
}

// AddIssuer implements the model.IssuerState interface
func (s IssuersStorage) AddIssuer(account model.Account) error {
	if err := ledgerState(s).writable(); err != nil {
		return err
	}
	err := s.db.Create(&model.IssuerMembership{Account: account.Hex()}).Error
	if isUniqueConstraintError(err) {
		return model.AlreadyExistsErrorFmt("issuer %s already exists", account.Hex())
	}
	return err
}

// RemoveIssuer implements the model.IssuerState interface
func (s IssuersStorage) RemoveIssuer(account model.Account) error {
	if err := ledgerState(s).writable(); err != nil {
		return err
	}
	res := s.db.Where("account = ?", account.Hex()).Delete(&model.IssuerMembership{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("issuer %s not found", account.Hex())
	}
	return nil
}

// Issuers implements the model.IssuerState interface
func (s IssuersStorage) Issuers() ([]model.Account, error) {
	var rows []model.IssuerMembership
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Account, 0, len(rows))
	for _, r := range rows {
		a, err := model.ParseAccount(r.Account)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	sort.Slice(
		out, func(i, j int) bool {
			return out[i].Cmp(out[j]) < 0
		},
	)
	return out, nil
}

// CertificatesStorage implements model.CertificateState using GORM
type CertificatesStorage ledgerState

// Certificate implements the model.CertificateState interface
func (s CertificatesStorage) Certificate(holder model.Account, id model.Identifier) (*model.Certificate, error) {
	var r model.CertificateRecord
	err := s.db.Where("holder = ? AND id = ?", holder.Hex(), id.Hex()).First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "storage: certificate lookup failed")
	}
	c := r.Certificate()
	return &c, nil
}

// Insert implements the model.CertificateState interface
func (s CertificatesStorage) Insert(cert model.Certificate) error {
	if err := ledgerState(s).writable(); err != nil {
		return err
	}
	r := model.NewCertificateRecord(cert)
	err := s.db.Create(&r).Error
	if isUniqueConstraintError(err) {
		return model.CollisionErrorFmt("certificate %s already exists", cert.ID.Hex())
	}
	return err
}

// MarkRevoked implements the model.CertificateState interface
func (s CertificatesStorage) MarkRevoked(holder model.Account, id model.Identifier) error {
	if err := ledgerState(s).writable(); err != nil {
		return err
	}
	res := s.db.Model(&model.CertificateRecord{}).
		Where("holder = ? AND id = ?", holder.Hex(), id.Hex()).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("certificate %s not found", id.Hex())
	}
	return nil
}

func (s CertificatesStorage) counter(holder model.Account) (model.HolderCounter, error) {
	var c model.HolderCounter
	err := s.db.Where("holder = ?", holder.Hex()).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c, nil
	}
	return c, err
}

func (s CertificatesStorage) setCounter(holder model.Account, column string, value uint64) error {
	if err := ledgerState(s).writable(); err != nil {
		return err
	}
	c := model.HolderCounter{Holder: holder.Hex()}
	switch column {
	case "active":
		c.Active = value
	case "sequence":
		c.Sequence = value
	default:
		return errors.Errorf("storage: unknown counter '%s'", column)
	}
	return s.db.Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "holder"}},
			DoUpdates: clause.AssignmentColumns(
				[]string{
					column,
					"updated_at",
				},
			),
		},
	).Create(&c).Error
}

// ActiveCount implements the model.CertificateState interface
func (s CertificatesStorage) ActiveCount(holder model.Account) (uint64, error) {
	c, err := s.counter(holder)
	return c.Active, err
}

// SetActiveCount implements the model.CertificateState interface
func (s CertificatesStorage) SetActiveCount(holder model.Account, n uint64) error {
	return s.setCounter(holder, "active", n)
}

// Sequence implements the model.CertificateState interface
func (s CertificatesStorage) Sequence(holder model.Account) (uint64, error) {
	c, err := s.counter(holder)
	return c.Sequence, err
}

// SetSequence implements the model.CertificateState interface
func (s CertificatesStorage) SetSequence(holder model.Account, seq uint64) error {
	return s.setCounter(holder, "sequence", seq)
}

// Certificates implements the model.CertificateState interface
func (s CertificatesStorage) Certificates(holder model.Account) ([]model.Certificate, error) {
	var rows []model.CertificateRecord
	if err := s.db.Where("holder = ?", holder.Hex()).Order("sequence").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Certificate, len(rows))
	for i, r := range rows {
		out[i] = r.Certificate()
	}
	return out, nil
}

// Holders implements the model.CertificateState interface
func (s CertificatesStorage) Holders() ([]model.Account, error) {
	var holders []string
	if err := s.db.Model(&model.HolderCounter{}).Pluck("holder", &holders).Error; err != nil {
		return nil, err
	}
	out := make([]model.Account, len(holders))
	for i, h := range holders {
		var err error
		if out[i], err = model.ParseAccount(h); err != nil {
			return nil, err
		}
	}
	sort.Slice(
		out, func(i, j int) bool {
			return out[i].Cmp(out[j]) < 0
		},
	)
	return out, nil
}
