package config

import (
	"github.com/go-oidfed/certledger/api/adminapi"
	"github.com/go-oidfed/certledger/storage"
)

// apiConf holds API-related configuration
type apiConf struct {
	Admin adminAPIConf `yaml:"admin"`
}

type adminAPIConf struct {
	Enabled        bool                   `yaml:"enabled"`
	UsersEnabled   bool                   `yaml:"users_enabled"`
	Port           int                    `yaml:"port"`
	ServerURL      string                 `yaml:"server_url"`
	Argon2idParams storage.Argon2idParams `yaml:"password_hashing"`
}

// Options returns the adminapi.Options; nil if the admin API is disabled
func (a adminAPIConf) Options() *adminapi.Options {
	if !a.Enabled {
		return nil
	}
	return &adminapi.Options{
		UsersEnabled: a.UsersEnabled,
		ServerURL:    a.ServerURL,
		Port:         a.Port,
	}
}

var defaultAPIConf = apiConf{
	Admin: adminAPIConf{
		Enabled:      true,
		UsersEnabled: true,
		Argon2idParams: storage.Argon2idParams{
			Time:        1,
			MemoryKiB:   64 * 1024,
			Parallelism: 4,
			KeyLen:      64,
			SaltLen:     32,
		},
	},
}
