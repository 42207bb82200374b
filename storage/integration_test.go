package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-oidfed/certledger/storage/model"
	"github.com/go-oidfed/certledger/storage/storagetest"
)

func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}
}

func newSQLiteStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(
		Config{
			Driver:  DriverSQLite,
			DataDir: t.TempDir(),
			UsersHash: Argon2idParams{
				Time:        1,
				MemoryKiB:   1024,
				Parallelism: 1,
				KeyLen:      16,
				SaltLen:     8,
			},
		},
	)
	require.NoError(t, err)
	return s
}

// TestConnection tests connecting to each supported database
func TestConnection(t *testing.T) {
	skipUnlessIntegration(t)

	tests := []struct {
		name   string
		driver DriverType
		dsnEnv string
	}{
		{
			name:   "sqlite",
			driver: DriverSQLite,
		},
		{
			name:   "mysql",
			driver: DriverMySQL,
			dsnEnv: "MYSQL_DSN",
		},
		{
			name:   "postgres",
			driver: DriverPostgres,
			dsnEnv: "POSTGRES_DSN",
		},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				config := Config{
					Driver:  test.driver,
					DataDir: t.TempDir(),
				}
				if test.dsnEnv != "" {
					config.DSN = os.Getenv(test.dsnEnv)
					if config.DSN == "" {
						t.Skipf("Skipping %s test. Set %s environment variable", test.name, test.dsnEnv)
					}
				}
				db, err := Connect(config)
				require.NoError(t, err)
				sqlDB, err := db.DB()
				require.NoError(t, err)
				defer sqlDB.Close()
				assert.NoError(t, sqlDB.Ping())
			},
		)
	}
}

// TestSQLiteBackend runs the ledger backend conformance suite against SQLite
func TestSQLiteBackend(t *testing.T) {
	skipUnlessIntegration(t)
	storagetest.RunBackendTests(
		t, func(t *testing.T) model.Backend {
			return newSQLiteStorage(t)
		},
	)
}

// TestUsersStorage tests the admin users CRUD on SQLite
func TestUsersStorage(t *testing.T) {
	skipUnlessIntegration(t)
	s := newSQLiteStorage(t)
	defer s.Close()
	users := s.UsersStorage()
	account := model.Account{0x42}

	n, err := users.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = users.Create("owner", "secret", "Owner", model.NullAccount)
	var verr model.ValidationError
	assert.ErrorAs(t, err, &verr)

	u, err := users.Create("owner", "secret", "Owner", account)
	require.NoError(t, err)
	assert.Equal(t, account.Hex(), u.Account)
	assert.Empty(t, u.PasswordHash)

	_, err = users.Create("owner", "other", "", account)
	var aerr model.AlreadyExistsError
	assert.ErrorAs(t, err, &aerr)

	got, err := users.Authenticate("owner", "secret")
	require.NoError(t, err)
	assert.Equal(t, account, got)

	_, err = users.Authenticate("owner", "wrong")
	assert.Error(t, err)

	other := model.Account{0x43}
	name := "Renamed"
	u, err = users.Update("owner", model.UserUpdate{DisplayName: &name, Account: &other})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", u.DisplayName)
	assert.Equal(t, other.Hex(), u.Account)
	byAccount, err := users.ListByAccount(other)
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
	assert.Equal(t, "owner", byAccount[0].Username)
	byAccount, err = users.ListByAccount(account)
	require.NoError(t, err)
	assert.Empty(t, byAccount)

	null := model.NullAccount
	_, err = users.Update("owner", model.UserUpdate{Account: &null})
	assert.ErrorAs(t, err, &verr)

	password := "changed"
	_, err = users.Update("owner", model.UserUpdate{Password: &password})
	require.NoError(t, err)
	_, err = users.Authenticate("owner", "secret")
	assert.Error(t, err)
	got, err = users.Authenticate("owner", "changed")
	require.NoError(t, err)
	assert.Equal(t, other, got)

	disabled := true
	_, err = users.Update("owner", model.UserUpdate{Disabled: &disabled})
	require.NoError(t, err)
	_, err = users.Authenticate("owner", "changed")
	var authErr model.AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	_, err = users.Update("nobody", model.UserUpdate{})
	var nerr model.NotFoundError
	assert.ErrorAs(t, err, &nerr)

	require.NoError(t, users.Delete("owner"))
	assert.ErrorAs(t, users.Delete("owner"), &nerr)
}
