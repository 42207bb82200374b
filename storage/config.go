package storage

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DriverType names a SQL database driver
type DriverType string

// Supported DriverTypes
const (
	DriverSQLite   DriverType = "sqlite"
	DriverMySQL    DriverType = "mysql"
	DriverPostgres DriverType = "postgres"
)

// SupportedDrivers lists the DriverTypes Connect accepts
var SupportedDrivers = []DriverType{
	DriverSQLite,
	DriverMySQL,
	DriverPostgres,
}

// sqliteFile is the database file used in Config.DataDir if no DSN is set
const sqliteFile = "certledger.db"

type networkDriver struct {
	defaultPort int
	dsnFormat   string
	open        func(dsn string) gorm.Dialector
}

var networkDrivers = map[DriverType]networkDriver{
	DriverMySQL: {
		defaultPort: 3306,
		// user, password, host, port, db
		dsnFormat: "%[1]s:%[2]s@tcp(%[3]s:%[4]d)/%[5]s?charset=utf8mb4&parseTime=True",
		open:      mysql.Open,
	},
	DriverPostgres: {
		defaultPort: 5432,
		dsnFormat:   "host=%[3]s user=%[1]s password=%[2]s dbname=%[5]s port=%[4]d",
		open:        postgres.Open,
	},
}

// DSNConf holds the connection parameters of a networked database; DSN
// turns them into a driver specific connection string
type DSNConf struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"db"`
}

// DSN builds the connection string for driver from conf. A zero port
// selects the driver's default port.
func DSN(driver DriverType, conf DSNConf) (string, error) {
	if driver == DriverSQLite {
		return "", errors.Errorf("driver %s does not use dsn", driver)
	}
	d, ok := networkDrivers[driver]
	if !ok {
		return "", errors.Errorf("unsupported driver '%s'", driver)
	}
	port := conf.Port
	if port == 0 {
		port = d.defaultPort
	}
	return fmt.Sprintf(d.dsnFormat, conf.User, conf.Password, conf.Host, port, conf.DB), nil
}

// Config configures the SQL ledger backend
type Config struct {
	Driver DriverType `yaml:"driver"`
	// DSN is the driver specific connection string; for sqlite the database
	// file, which defaults to certledger.db in DataDir
	DSN     string `yaml:"dsn"`
	DataDir string `yaml:"data_dir"`
	// Debug logs every SQL statement
	Debug     bool           `yaml:"debug"`
	UsersHash Argon2idParams `yaml:"users_hash"`
}

func (cfg Config) dialector() (gorm.Dialector, error) {
	if cfg.Driver == DriverSQLite {
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(cfg.DataDir, sqliteFile)
		}
		return sqlite.Open(dsn), nil
	}
	d, ok := networkDrivers[cfg.Driver]
	if !ok {
		return nil, errors.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	return d.open(cfg.DSN), nil
}

// Connect opens the database described by cfg. Driver errors are translated
// to gorm errors so unique key violations surface as gorm.ErrDuplicatedKey.
func Connect(cfg Config) (*gorm.DB, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}
	logMode := logger.Silent
	if cfg.Debug {
		logMode = logger.Info
	}
	return gorm.Open(
		dialector, &gorm.Config{
			Logger:         logger.Default.LogMode(logMode),
			TranslateError: true,
		},
	)
}
