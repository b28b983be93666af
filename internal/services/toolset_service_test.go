package services

import (
	"context"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatvault/internal/domain"
	"chatvault/internal/models"
	"chatvault/internal/repositories"
)

func newToolsetService(t *testing.T) (ToolsetService, keyring.Keyring) {
	t.Helper()
	db := newTestStore(t)
	ring := keyring.NewArrayKeyring(nil)
	return NewToolsetService(repositories.NewToolsetRepository(db), NewKeyringService(ring)), ring
}

func TestToolsetEnabledDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _ := newToolsetService(t)

	web, err := svc.IsEnabled(ctx, "web")
	require.NoError(t, err)
	assert.True(t, web)

	terminal, err := svc.IsEnabled(ctx, "terminal")
	require.NoError(t, err)
	assert.False(t, terminal)

	require.NoError(t, svc.SetEnabled(ctx, "web", false))
	web, err = svc.IsEnabled(ctx, "web")
	require.NoError(t, err)
	assert.False(t, web)

	require.NoError(t, svc.SetEnabled(ctx, "terminal", true))
	terminal, err = svc.IsEnabled(ctx, "terminal")
	require.NoError(t, err)
	assert.True(t, terminal)
}

func TestToolsetSecretParameters(t *testing.T) {
	ctx := context.Background()
	svc, ring := newToolsetService(t)

	require.NoError(t, svc.SetSecretParameter(ctx, "github", "token", []byte("ghp_secret")))

	params, err := svc.ListParameters(ctx, "github")
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "keyring:toolset:github:token", params[0].ParameterValue, "the store only keeps a reference")

	value, ok, err := svc.GetParameter(ctx, "github", "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ghp_secret", value)

	item, err := ring.Get("toolset:github:token")
	require.NoError(t, err)
	assert.Equal(t, []byte("ghp_secret"), item.Data)

	require.NoError(t, svc.DeleteParameter(ctx, "github", "token"))
	_, err = ring.Get("toolset:github:token")
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
	_, ok, err = svc.GetParameter(ctx, "github", "token")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, svc.DeleteParameter(ctx, "github", "token"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.SetParameter(ctx, "github", "token", "keyring:sneaky"), domain.ErrValidation)
	assert.ErrorIs(t, svc.SetParameter(ctx, "", "token", "x"), domain.ErrValidation)
}

func TestToolsetPlainParameters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newToolsetService(t)

	require.NoError(t, svc.SetParameter(ctx, "web", "region", "eu"))
	require.NoError(t, svc.SetParameter(ctx, "web", "region", "us"))
	value, ok, err := svc.GetParameter(ctx, "web", "region")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "us", value)
}

func TestToolPermissions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newToolsetService(t)

	perm, err := svc.GetPermission(ctx, "web", "fetch")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionAsk, perm)

	require.NoError(t, svc.RecordResponse(ctx, "web", "fetch", true))
	require.NoError(t, svc.SetPermission(ctx, "web", "fetch", models.PermissionAlwaysAllow))
	require.NoError(t, svc.SetPermission(ctx, "web", "search", models.PermissionAlwaysDeny))
	assert.ErrorIs(t, svc.SetPermission(ctx, "web", "fetch", models.PermissionType("sometimes")), domain.ErrValidation)

	perms, err := svc.ListPermissions(ctx, "web")
	require.NoError(t, err)
	require.Len(t, perms, 2)
	byTool := map[string]models.ToolPermission{}
	for _, p := range perms {
		byTool[p.ToolName] = p
	}
	fetch := byTool["fetch"]
	assert.Equal(t, models.PermissionAlwaysAllow, fetch.PermissionType)
	require.NotNil(t, fetch.LastResponse, "setting a permission keeps the last answer")
	assert.Equal(t, models.ResponseAllow, *fetch.LastResponse)
	assert.NotNil(t, fetch.LastAskedAt)

	require.NoError(t, svc.RecordResponse(ctx, "web", "search", true))
	perm, err = svc.GetPermission(ctx, "web", "search")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionAlwaysDeny, perm, "recording an answer keeps the permission")

	n, err := svc.ResetPermissions(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	perm, err = svc.GetPermission(ctx, "web", "fetch")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionAsk, perm)
}

func TestCustomToolsets(t *testing.T) {
	ctx := context.Background()
	svc, _ := newToolsetService(t)

	_, err := svc.UpsertCustomToolset(ctx, CustomToolsetInput{Name: "fs"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpsertCustomToolset(ctx, CustomToolsetInput{Name: "fs", Command: "npx", Args: "-y fs-server"})
	require.NoError(t, err)
	_, err = svc.UpsertCustomToolset(ctx, CustomToolsetInput{Name: "fs", Command: "npx", Args: "-y fs-server /home", Env: map[string]string{"DEBUG": "1"}})
	require.NoError(t, err)

	got, err := svc.GetCustomToolset(ctx, "fs")
	require.NoError(t, err)
	assert.Equal(t, "-y fs-server /home", got.Args)
	assert.Equal(t, map[string]string{"DEBUG": "1"}, got.Env)

	list, err := svc.ListCustomToolsets(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteCustomToolset(ctx, "fs"))
	_, err = svc.GetCustomToolset(ctx, "fs")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
