package config

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/duration"

	"github.com/go-oidfed/certledger/storage"
	"github.com/go-oidfed/certledger/storage/badgerstore"
	"github.com/go-oidfed/certledger/storage/memstore"
	"github.com/go-oidfed/certledger/storage/model"
)

type storageConf struct {
	BackendType     backendType        `yaml:"backend"`
	Driver          storage.DriverType `yaml:"driver"`
	DataDir         string             `yaml:"data_dir"`
	DSN             string             `yaml:"dsn"`
	storage.DSNConf `yaml:",inline"`
	Debug           bool       `yaml:"debug"`
	Badger          badgerConf `yaml:"badger"`
}

type badgerConf struct {
	InMemory   bool                    `yaml:"in_memory"`
	GCInterval duration.DurationOption `yaml:"gc_interval"`
}

type backendType string

// Supported storage backends
const (
	BackendTypeGorm   backendType = "gorm"
	BackendTypeBadger backendType = "badger"
	BackendTypeMemory backendType = "memory"
)

func (c *storageConf) validate() error {
	switch c.BackendType {
	case BackendTypeMemory:
		log.Warn("using the in-memory storage backend; the ledger is lost on restart")
		return nil
	case BackendTypeBadger:
		if c.DataDir == "" && !c.Badger.InMemory {
			return errors.New("data_dir must be specified for the badger backend")
		}
		return nil
	case BackendTypeGorm:
	default:
		return errors.Errorf("unsupported storage backend '%s'", c.BackendType)
	}

	if c.Driver == storage.DriverSQLite {
		if c.DataDir == "" {
			return errors.New("data_dir must be specified")
		}
		return nil
	}
	var err error
	if c.DSN == "" {
		c.DSN, err = storage.DSN(c.Driver, c.DSNConf)
	}
	return err
}

var defaultStorageConf = storageConf{
	BackendType: BackendTypeGorm,
	Driver:      storage.DriverSQLite,
	DSNConf: storage.DSNConf{
		User: "certledger",
		Host: "localhost",
		DB:   "certledger",
	},
	Badger: badgerConf{
		GCInterval: duration.DurationOption(10 * time.Minute),
	},
}

// LoadStorageBackends opens the configured ledger backend. Users are only
// available with the gorm backend; for the others Backends.Users is nil.
func LoadStorageBackends(c storageConf, usersHash storage.Argon2idParams) (model.Backends, error) {
	var backs model.Backends
	switch c.BackendType {
	case BackendTypeMemory:
		backs.Ledger = memstore.New()
	case BackendTypeBadger:
		b, err := badgerstore.Open(
			badgerstore.Config{
				Path:       c.DataDir,
				InMemory:   c.Badger.InMemory,
				GCInterval: c.Badger.GCInterval.Duration(),
			},
		)
		if err != nil {
			return backs, err
		}
		backs.Ledger = b
	default:
		var err error
		backs, err = storage.LoadStorageBackends(
			storage.Config{
				Driver:    c.Driver,
				DSN:       c.DSN,
				DataDir:   c.DataDir,
				Debug:     c.Debug,
				UsersHash: usersHash,
			},
		)
		if err != nil {
			return backs, err
		}
	}
	log.WithField("backend", c.BackendType).Info("Loaded storage backend")
	return backs, nil
}
