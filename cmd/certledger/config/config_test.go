package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-oidfed/certledger/events"
	"github.com/go-oidfed/certledger/storage"
	"github.com/go-oidfed/certledger/storage/model"
)

func TestLoadFromBytesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadFromBytes([]byte("storage:\n  data_dir: "+dir+"\n")))
	conf := Get()

	assert.Equal(t, 7672, conf.Server.Port)
	assert.Equal(t, BackendTypeGorm, conf.Storage.BackendType)
	assert.Equal(t, storage.DriverSQLite, conf.Storage.Driver)
	assert.Equal(t, dir, conf.Storage.DataDir)
	assert.True(t, conf.Events.Log)
	assert.Equal(t, 10*time.Second, conf.Events.Redis.FlushPeriod.Duration())
	assert.True(t, conf.API.Admin.Enabled)
	assert.Equal(t, uint32(64*1024), conf.API.Admin.Argon2idParams.MemoryKiB)
	assert.Equal(t, "INFO", conf.Logging.Internal.Level)
	_, ok := conf.Ledger.DeployerAccount()
	assert.False(t, ok)
}

func TestLoadFromBytes(t *testing.T) {
	data := `
server:
  port: 8080
ledger:
  deployer: "0xb2248390842d3C4aCF1D8A893954Afc0EAc586e5"
storage:
  backend: badger
  data_dir: /tmp/ledger
  badger:
    gc_interval: 1m
events:
  log: false
  redis:
    url: redis://localhost:6379/0
    flush_period: 5s
api:
  admin:
    enabled: false
logging:
  internal:
    level: debug
`
	require.NoError(t, LoadFromBytes([]byte(data)))
	conf := Get()

	assert.Equal(t, 8080, conf.Server.Port)
	deployer, ok := conf.Ledger.DeployerAccount()
	require.True(t, ok)
	assert.Equal(t, "0xb2248390842d3C4aCF1D8A893954Afc0EAc586e5", deployer.Hex())
	assert.Equal(t, BackendTypeBadger, conf.Storage.BackendType)
	assert.Equal(t, time.Minute, conf.Storage.Badger.GCInterval.Duration())
	assert.False(t, conf.Events.Log)
	assert.Equal(t, "certledger.events", conf.Events.Redis.Stream)
	assert.Equal(t, 5*time.Second, conf.Events.Redis.FlushPeriod.Duration())
	assert.Nil(t, conf.API.Admin.Options())
	assert.Equal(t, "debug", conf.Logging.Internal.Level)
}

func TestLoadFromBytesInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "yaml", data: "server: ["},
		{name: "deployer", data: "ledger:\n  deployer: nope\nstorage:\n  backend: memory\n"},
		{
			name: "null deployer",
			data: "ledger:\n  deployer: \"0x0000000000000000000000000000000000000000\"\nstorage:\n  backend: memory\n",
		},
		{name: "backend", data: "storage:\n  backend: json\n"},
		{name: "sqlite without data dir", data: "storage:\n  backend: gorm\n"},
		{name: "badger without data dir", data: "storage:\n  backend: badger\n"},
		{name: "unsupported driver", data: "storage:\n  driver: oracle\n"},
		{
			name: "redis without stream",
			data: "storage:\n  backend: memory\nevents:\n  redis:\n    url: redis://localhost\n    stream: \"\"\n",
		},
		{name: "logging dir", data: "storage:\n  backend: memory\nlogging:\n  access:\n    dir: /does/not/exist\n"},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				assert.Error(t, LoadFromBytes([]byte(test.data)))
			},
		)
	}
}

func TestStorageDSNFromParts(t *testing.T) {
	c := storageConf{
		BackendType: BackendTypeGorm,
		Driver:      storage.DriverPostgres,
		DSNConf: storage.DSNConf{
			User: "u",
			Host: "db",
			DB:   "ledger",
		},
	}
	require.NoError(t, c.validate())
	assert.Equal(t, "host=db user=u password= dbname=ledger port=5432", c.DSN)
}

func TestLoadStorageBackends(t *testing.T) {
	backs, err := LoadStorageBackends(storageConf{BackendType: BackendTypeMemory}, storage.Argon2idParams{})
	require.NoError(t, err)
	assert.Nil(t, backs.Users)
	require.NoError(t, backs.Ledger.View(func(model.State) error { return nil }))

	backs, err = LoadStorageBackends(
		storageConf{
			BackendType: BackendTypeBadger,
			Badger:      badgerConf{InMemory: true},
		}, storage.Argon2idParams{},
	)
	require.NoError(t, err)
	assert.NoError(t, backs.Ledger.Close())
}

func TestNewPublisher(t *testing.T) {
	p, err := NewPublisher(eventsConf{})
	require.NoError(t, err)
	assert.IsType(t, events.Discard{}, p)

	p, err = NewPublisher(eventsConf{Log: true})
	require.NoError(t, err)
	assert.IsType(t, events.LogPublisher{}, p)

	_, err = NewPublisher(
		eventsConf{
			Redis: redisConf{
				URL:    "::not a url",
				Stream: "s",
			},
		},
	)
	assert.Error(t, err)
}
