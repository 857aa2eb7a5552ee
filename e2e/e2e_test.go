package e2e_test

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/shelf"
	"github.com/sagarc03/shelf/clientcli"
)

var devKey = signingKey{KeyID: "e2e-1", Secret: strings.Repeat("k", 32)}

func hmacServer(dbType, dsn string) ServerConfig {
	return ServerConfig{
		DBType:   dbType,
		DBDSN:    dsn,
		AuthMode: "hmac",
		Issuer:   "shelf-e2e",
		Keys:     []signingKey{devKey},
	}
}

// clientFor returns a client authenticated as subject with a token minted
// by "shelf token".
func clientFor(t *testing.T, baseURL, configPath, subject string) *clientcli.Client {
	t.Helper()

	tok := runCommand(t, configPath, "token", subject, "--username", subject)
	require.NotEmpty(t, tok)

	client, err := clientcli.New(&clientcli.Config{Endpoint: baseURL, Token: tok})
	require.NoError(t, err)
	return client
}

func TestE2E_ItemLifecycle_SQLite(t *testing.T) {
	cfg := hmacServer("sqlite", filepath.Join(t.TempDir(), "test.db"))
	cfg.Port = getOpenPort(t)

	baseURL, configPath := startServer(t, cfg)
	runItemLifecycle(t, clientFor(t, baseURL, configPath, "user-1"))
}

func TestE2E_ItemLifecycle_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	cfg := hmacServer("postgres", getSharedPostgresDatabase(t))
	cfg.Port = getOpenPort(t)

	baseURL, configPath := startServer(t, cfg)
	runItemLifecycle(t, clientFor(t, baseURL, configPath, "pg-user-1"))
}

func TestE2E_ItemLifecycle_File(t *testing.T) {
	cfg := hmacServer("file", t.TempDir())
	cfg.Port = getOpenPort(t)

	baseURL, configPath := startServer(t, cfg)
	runItemLifecycle(t, clientFor(t, baseURL, configPath, "file-user-1"))
}

// runItemLifecycle drives create, read, update and delete through the
// client wrapper.
func runItemLifecycle(t *testing.T, client *clientcli.Client) {
	t.Helper()
	ctx := context.Background()

	var created shelf.Item

	t.Run("list starts empty", func(t *testing.T) {
		items, err := client.GetItems(ctx)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("create", func(t *testing.T) {
		var err error
		created, err = client.CreateItem(ctx, clientcli.ItemInput{Name: "groceries", Description: "milk"})
		require.NoError(t, err)

		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "groceries", created.Name)
		assert.Equal(t, "milk", created.Description)
		assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	})

	t.Run("get", func(t *testing.T) {
		got, err := client.GetItem(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.OwnerID, got.OwnerID)
	})

	t.Run("list returns the item", func(t *testing.T) {
		items, err := client.GetItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, created.ID, items[0].ID)
	})

	t.Run("update", func(t *testing.T) {
		updated, err := client.UpdateItem(ctx, created.ID, clientcli.ItemInput{Name: "groceries", Description: "milk, eggs"})
		require.NoError(t, err)

		assert.Equal(t, "milk, eggs", updated.Description)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("delete", func(t *testing.T) {
		res, err := client.DeleteItem(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Item deleted successfully", res.Message)
		assert.Equal(t, created.ID, res.ID)
	})

	t.Run("get after delete is not found", func(t *testing.T) {
		_, err := client.GetItem(ctx, created.ID)
		assert.ErrorIs(t, err, clientcli.ErrNotFound)
	})

	t.Run("update after delete is not found", func(t *testing.T) {
		_, err := client.UpdateItem(ctx, created.ID, clientcli.ItemInput{Name: "x"})
		assert.ErrorIs(t, err, clientcli.ErrNotFound)
	})
}

func TestE2E_OwnershipIsolation(t *testing.T) {
	cfg := hmacServer("sqlite", filepath.Join(t.TempDir(), "test.db"))
	cfg.Port = getOpenPort(t)

	baseURL, configPath := startServer(t, cfg)
	alice := clientFor(t, baseURL, configPath, "alice")
	bob := clientFor(t, baseURL, configPath, "bob")
	ctx := context.Background()

	item, err := alice.CreateItem(ctx, clientcli.ItemInput{Name: "private"})
	require.NoError(t, err)

	items, err := bob.GetItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = bob.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, clientcli.ErrForbidden)

	_, err = bob.DeleteItem(ctx, item.ID)
	assert.ErrorIs(t, err, clientcli.ErrForbidden)

	_, err = alice.GetItem(ctx, item.ID)
	assert.NoError(t, err)
}

func TestE2E_RejectsMissingAndBadTokens(t *testing.T) {
	cfg := hmacServer("sqlite", filepath.Join(t.TempDir(), "test.db"))
	cfg.Port = getOpenPort(t)

	baseURL, _ := startServer(t, cfg)
	ctx := context.Background()

	anon, err := clientcli.New(&clientcli.Config{Endpoint: baseURL})
	require.NoError(t, err)

	_, err = anon.GetItems(ctx)
	assert.ErrorIs(t, err, clientcli.ErrUnauthorized)

	forged, err := clientcli.New(&clientcli.Config{Endpoint: baseURL, Token: "not.a.jwt"})
	require.NoError(t, err)

	_, err = forged.CreateItem(ctx, clientcli.ItemInput{Name: "x"})
	assert.ErrorIs(t, err, clientcli.ErrUnauthorized)

	status, err := anon.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
}

func TestE2E_AuthDisabled(t *testing.T) {
	baseURL, _ := startServer(t, ServerConfig{
		Port:   getOpenPort(t),
		DBType: "sqlite",
		DBDSN:  filepath.Join(t.TempDir(), "test.db"),
	})
	ctx := context.Background()

	client, err := clientcli.New(&clientcli.Config{Endpoint: baseURL})
	require.NoError(t, err)

	item, err := client.CreateItem(ctx, clientcli.ItemInput{Name: "open"})
	require.NoError(t, err)
	assert.Equal(t, shelf.Anonymous.ID, item.OwnerID)
}

func TestE2E_Metrics(t *testing.T) {
	cfg := hmacServer("sqlite", filepath.Join(t.TempDir(), "test.db"))
	cfg.Port = getOpenPort(t)
	cfg.Metrics = true

	baseURL, configPath := startServer(t, cfg)
	client := clientFor(t, baseURL, configPath, "metrics-user")

	_, err := client.GetItems(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(baseURL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "shelf_http_requests_total")
	assert.Contains(t, string(body), `route="/items/"`)
}
