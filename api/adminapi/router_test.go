package adminapi

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/go-oidfed/certledger/storage/model"
)

func TestAdaptServerURLPort(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		port   int
		expect string
	}{
		{name: "empty", in: "", port: 8080, expect: ""},
		{name: "no port", in: "https://ledger.example.com", port: 8081, expect: "https://ledger.example.com:8081"},
		{name: "replace port", in: "http://localhost:7672/base", port: 9000, expect: "http://localhost:9000/base"},
		{name: "zero port", in: "http://localhost:7672", port: 0, expect: "http://localhost:7672"},
		{name: "no host", in: "not a url", port: 9000, expect: "not a url"},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				assert.Equal(t, test.expect, adaptServerURLPort(test.in, test.port))
			},
		)
	}
}

func TestPrepareOpenAPI(t *testing.T) {
	out := prepareOpenAPI([]byte("openapi: 3.0.3\ninfo:\n  title: x\n"), "https://ledger.example.com")
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))

	servers := doc["servers"].([]any)
	require.Len(t, servers, 1)
	assert.Equal(t, "https://ledger.example.com", servers[0].(map[string]any)["url"])

	schemes := doc["components"].(map[string]any)["securitySchemes"].(map[string]any)
	assert.Contains(t, schemes, "basicAuth")
	assert.Contains(t, doc, "security")

	t.Run(
		"existing security is kept", func(t *testing.T) {
			out := prepareOpenAPI([]byte("openapi: 3.0.3\nsecurity: []\n"), "")
			var doc map[string]any
			require.NoError(t, yaml.Unmarshal(out, &doc))
			assert.Empty(t, doc["security"])
			assert.NotContains(t, doc, "servers")
		},
	)
	t.Run(
		"invalid document is returned unchanged", func(t *testing.T) {
			in := []byte("{unclosed")
			assert.Equal(t, in, prepareOpenAPI(in, "https://x"))
		},
	)
}

func TestIssueRequestValidate(t *testing.T) {
	now := time.Unix(1_000, 0)
	holder := model.Account{0x10}.Hex()
	tests := []struct {
		name       string
		req        issueRequest
		expireDate int64
		valid      bool
	}{
		{
			name:       "expire date",
			req:        issueRequest{Holder: holder, Score: 10, ExpireDate: 2_000},
			expireDate: 2_000,
			valid:      true,
		},
		{
			name:       "valid for",
			req:        issueRequest{Holder: holder, Score: 65535, ValidFor: "1m"},
			expireDate: 1_060,
			valid:      true,
		},
		{name: "bad holder", req: issueRequest{Holder: "0x1", ExpireDate: 2_000}},
		{name: "negative score", req: issueRequest{Holder: holder, Score: -1, ExpireDate: 2_000}},
		{name: "score too large", req: issueRequest{Holder: holder, Score: 65536, ExpireDate: 2_000}},
		{name: "both", req: issueRequest{Holder: holder, ExpireDate: 2_000, ValidFor: "1h"}},
		{name: "neither", req: issueRequest{Holder: holder}},
		{name: "bad duration", req: issueRequest{Holder: holder, ValidFor: "soon"}},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				_, score, expireDate, err := test.req.validate(now)
				if !test.valid {
					var verr model.ValidationError
					assert.ErrorAs(t, err, &verr)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, uint16(test.req.Score), score)
				assert.Equal(t, test.expireDate, expireDate)
			},
		)
	}
}

type fakeUsers struct {
	users map[string]model.User
}

func (f *fakeUsers) Count() (int64, error) { return int64(len(f.users)), nil }
func (f *fakeUsers) List() ([]model.User, error) {
	var list []model.User
	for _, u := range f.users {
		list = append(list, u)
	}
	return list, nil
}
func (f *fakeUsers) Get(username string) (*model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, model.NotFoundError("user not found")
	}
	return &u, nil
}
func (f *fakeUsers) Create(username, password, displayName string, account model.Account) (*model.User, error) {
	u := model.User{
		Username:     username,
		PasswordHash: password,
		DisplayName:  displayName,
		Account:      account.Hex(),
	}
	f.users[username] = u
	return &u, nil
}
func (f *fakeUsers) ListByAccount(account model.Account) ([]model.User, error) {
	var list []model.User
	for _, u := range f.users {
		if u.Account == account.Hex() {
			list = append(list, u)
		}
	}
	return list, nil
}
func (f *fakeUsers) Update(string, model.UserUpdate) (*model.User, error) {
	return nil, model.ValidationError("not supported")
}
func (f *fakeUsers) Delete(username string) error {
	delete(f.users, username)
	return nil
}
func (f *fakeUsers) Authenticate(username, password string) (model.Account, error) {
	u, ok := f.users[username]
	if !ok || u.PasswordHash != password {
		return model.NullAccount, model.AuthorizationError("invalid credentials")
	}
	return model.ParseAccount(u.Account)
}

type nopLedger struct {
	Ledger
}

func newTestApp(t *testing.T, users model.UsersStore) *fiber.App {
	t.Helper()
	app := fiber.New()
	require.NoError(t, Register(app.Group("/admin"), nopLedger{}, users, &Options{UsersEnabled: true}))
	return app
}

func whoami(t *testing.T, app *fiber.App, header map[string]string) (int, model.Account) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	if res.StatusCode != http.StatusOK {
		return res.StatusCode, model.NullAccount
	}
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	var a accountBody
	require.NoError(t, json.Unmarshal(body, &a))
	return res.StatusCode, a.Account
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestAuthMiddleware(t *testing.T) {
	alice := model.Account{0xa1}
	bob := model.Account{0xb0}

	t.Run(
		"no users store uses header", func(t *testing.T) {
			app := newTestApp(t, nil)
			status, caller := whoami(t, app, map[string]string{HeaderCaller: alice.Hex()})
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, alice, caller)

			status, caller = whoami(t, app, nil)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, model.NullAccount, caller)
		},
	)

	users := &fakeUsers{users: map[string]model.User{}}
	app := newTestApp(t, users)
	t.Run(
		"empty users store uses header", func(t *testing.T) {
			status, caller := whoami(t, app, map[string]string{HeaderCaller: bob.Hex()})
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, bob, caller)
		},
	)

	_, err := users.Create("alice", "secret", "Alice", alice)
	require.NoError(t, err)

	t.Run(
		"basic auth binds account", func(t *testing.T) {
			status, caller := whoami(
				t, app, map[string]string{
					fiber.HeaderAuthorization: basic("alice", "secret"),
					HeaderCaller:              bob.Hex(),
				},
			)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, alice, caller)
		},
	)
	t.Run(
		"header ignored once users exist", func(t *testing.T) {
			status, _ := whoami(t, app, map[string]string{HeaderCaller: bob.Hex()})
			assert.Equal(t, http.StatusUnauthorized, status)
		},
	)
	t.Run(
		"wrong password", func(t *testing.T) {
			status, _ := whoami(t, app, map[string]string{fiber.HeaderAuthorization: basic("alice", "nope")})
			assert.Equal(t, http.StatusUnauthorized, status)
		},
	)
	t.Run(
		"users routes mounted", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			req.Header.Set(fiber.HeaderAuthorization, basic("alice", "secret"))
			res, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, res.StatusCode)
			body, _ := io.ReadAll(res.Body)
			assert.True(t, strings.Contains(string(body), alice.Hex()))
		},
	)
	t.Run(
		"users filtered by account", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users?account="+bob.Hex(), nil)
			req.Header.Set(fiber.HeaderAuthorization, basic("alice", "secret"))
			res, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, res.StatusCode)
			body, _ := io.ReadAll(res.Body)
			assert.False(t, strings.Contains(string(body), "alice"))

			req = httptest.NewRequest(http.MethodGet, "/admin/users?account=nope", nil)
			req.Header.Set(fiber.HeaderAuthorization, basic("alice", "secret"))
			res, err = app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		},
	)
}

func TestParseBasicAuth(t *testing.T) {
	app := fiber.New()
	var user, pass string
	var ok bool
	app.Get(
		"/", func(c *fiber.Ctx) error {
			user, pass, ok = parseBasicAuth(c)
			return nil
		},
	)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderAuthorization, basic("u", "p:w"))
	_, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u", user)
	assert.Equal(t, "p:w", pass)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer x")
	_, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.False(t, ok)
}
