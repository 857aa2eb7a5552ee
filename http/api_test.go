package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sagarc03/shelf"
	"github.com/sagarc03/shelf/database/file"
	shelfhttp "github.com/sagarc03/shelf/http"
	"github.com/sagarc03/shelf/keybackend"
	"github.com/sagarc03/shelf/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apiSecret = []byte(strings.Repeat("z", keybackend.MinSecretLength))

type apiClient struct {
	t      *testing.T
	server *httptest.Server
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()

	store, err := file.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Migrate(t.Context()))
	t.Cleanup(func() { _ = store.Close() })

	service, err := shelf.NewItemService(store.GetRepo(), shelf.ServiceConfig{})
	require.NoError(t, err)

	verifier, err := token.NewHMACVerifier(
		keybackend.NewMapSecretStore(map[string][]byte{"test": apiSecret}),
		token.HMACConfig{},
	)
	require.NoError(t, err)

	server := httptest.NewServer(shelfhttp.NewHandler(&shelfhttp.HandlerConfig{Verifier: verifier}, service).Router())
	t.Cleanup(server.Close)

	return &apiClient{t: t, server: server}
}

func tokenFor(t *testing.T, sub string, ttl time.Duration) string {
	t.Helper()
	raw, err := token.SignHMAC("test", apiSecret, token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
	require.NoError(t, err)
	return raw
}

func (c *apiClient) do(method, path, bearer, body string) (int, []byte) {
	c.t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(c.t.Context(), method, c.server.URL+path, r)
	require.NoError(c.t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func TestAPI_ItemLifecycle(t *testing.T) {
	api := newAPI(t)
	alice := tokenFor(t, "alice", time.Hour)

	status, body := api.do("POST", "/items", alice, `{"name":"Widget","description":"A widget"}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	var created shelf.Item
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.OwnerID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	status, body = api.do("GET", "/items/"+created.ID, alice, "")
	require.Equal(t, http.StatusOK, status)
	var fetched shelf.Item
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, created, fetched)

	status, body = api.do("PUT", "/items/"+created.ID, alice, `{"name":"Gadget","description":""}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var updated shelf.Item
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Gadget", updated.Name)
	assert.Equal(t, "", updated.Description)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	status, body = api.do("GET", "/items", alice, "")
	require.Equal(t, http.StatusOK, status)
	var items []shelf.Item
	require.NoError(t, json.Unmarshal(body, &items))
	assert.Equal(t, []shelf.Item{updated}, items)

	status, body = api.do("DELETE", "/items/"+created.ID, alice, "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Item deleted successfully","id":"`+created.ID+`"}`, string(body))

	status, body = api.do("DELETE", "/items/"+created.ID, alice, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Item not found"}`, string(body))
}

func TestAPI_UnknownItem(t *testing.T) {
	api := newAPI(t)
	alice := tokenFor(t, "alice", time.Hour)

	status, body := api.do("GET", "/items/does-not-exist", alice, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Item not found"}`, string(body))

	status, _ = api.do("PUT", "/items/does-not-exist", alice, `{"name":"a","description":"b"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = api.do("GET", "/items", alice, "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestAPI_OtherOwnerIsForbidden(t *testing.T) {
	api := newAPI(t)
	alice := tokenFor(t, "alice", time.Hour)
	bob := tokenFor(t, "bob", time.Hour)

	status, body := api.do("POST", "/items", alice, `{"name":"Private","description":"mine"}`)
	require.Equal(t, http.StatusCreated, status)
	var created shelf.Item
	require.NoError(t, json.Unmarshal(body, &created))

	for _, method := range []string{"GET", "DELETE"} {
		status, body = api.do(method, "/items/"+created.ID, bob, "")
		assert.Equal(t, http.StatusForbidden, status, method)
		assert.JSONEq(t, `{"error":"Forbidden"}`, string(body))
	}

	status, _ = api.do("PUT", "/items/"+created.ID, bob, `{"name":"x","description":"y"}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = api.do("GET", "/items", bob, "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestAPI_RejectsBadTokens(t *testing.T) {
	api := newAPI(t)

	status, _ := api.do("POST", "/items", "", `{"name":"a","description":"b"}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do("POST", "/items", tokenFor(t, "alice", -time.Minute), `{"name":"a","description":"b"}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do("GET", "/items", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := api.do("GET", "/items", tokenFor(t, "alice", time.Hour), "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body), "rejected requests must not create items")
}

func TestAPI_ValidationErrors(t *testing.T) {
	api := newAPI(t)
	alice := tokenFor(t, "alice", time.Hour)

	status, body := api.do("POST", "/items", alice, `{"description":"no name"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"name is required"}`, string(body))

	status, body = api.do("POST", "/items", alice, `{"name":"`+strings.Repeat("n", 257)+`","description":"d"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"name must be at most 256 characters"}`, string(body))
}
