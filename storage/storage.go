package storage

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/go-oidfed/certledger/storage/model"
)

// Storage is a GORM-based storage implementation
type Storage struct {
	db         *gorm.DB
	userParams Argon2idParams
}

var models = []any{
	&model.IssuerMembership{},
	&model.CertificateRecord{},
	&model.HolderCounter{},
	&model.KeyValue{},
	&model.User{},
}

// NewStorage creates a new GORM-based storage
func NewStorage(config Config) (*Storage, error) {
	db, err := Connect(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// Auto migrate the schemas
	if err = db.AutoMigrate(models...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return &Storage{
		db:         db,
		userParams: config.UsersHash.orDefault(),
	}, nil
}

// Update implements the model.Backend interface. fn runs inside a database
// transaction that is rolled back if fn returns an error.
func (s *Storage) Update(fn func(state model.State) error) error {
	return s.db.Transaction(
		func(tx *gorm.DB) error {
			return fn(newLedgerState(tx, false))
		},
	)
}

// View implements the model.Backend interface
func (s *Storage) View(fn func(state model.State) error) error {
	return fn(newLedgerState(s.db, true))
}

// Close implements the model.Backend interface
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LoadStorageBackends initializes a warehouse and returns grouped backends.
func LoadStorageBackends(cfg Config) (model.Backends, error) {
	warehouse, err := NewStorage(cfg)
	if err != nil {
		return model.Backends{}, err
	}
	return model.Backends{
		Ledger: warehouse,
		Users:  warehouse.UsersStorage(),
	}, nil
}
