package main

import (
	"context"
	"testing"

	"backoffice/internal/attachments"
	"backoffice/internal/audit"
	intconfig "backoffice/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWithSQLiteCreatesSchema(t *testing.T) {
	env := intconfig.Env{DBDriver: "sqlite", DBDSN: "file::memory:", StorageDriver: "memory"}
	app, err := build(context.Background(), env, true)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, []string{"ambassadors", "blog_comments", "menu_items", "orders", "testimonials"}, app.Service.Registry.Names())
	_, ok := app.Service.Audit.(audit.Multi)
	assert.True(t, ok)
}

func TestBuildWithoutSchemaFails(t *testing.T) {
	env := intconfig.Env{DBDriver: "sqlite", DBDSN: "file::memory:", StorageDriver: "memory"}
	_, err := build(context.Background(), env, false)
	assert.Error(t, err)
}

func TestNewBlobStore(t *testing.T) {
	s, err := newBlobStore(context.Background(), intconfig.Env{StorageDriver: "local", UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, attachments.LocalStore{}, s)

	_, err = newBlobStore(context.Background(), intconfig.Env{StorageDriver: "ftp"})
	assert.Error(t, err)
}
