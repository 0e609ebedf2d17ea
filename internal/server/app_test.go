package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/abroadportal/internal/logging"
	"github.com/dmitrijs2005/abroadportal/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	c, err := loadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, 8, c.MaxStep())

	_, err = loadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewApp_BadCatalog(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "steps.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("steps: [ not: closed"), 0o600))

	var c config.Config
	c.LoadDefaults()
	c.StepCatalogPath = bad

	app, err := NewApp(context.Background(), &c, logging.Nop{})
	require.Error(t, err)
	assert.Nil(t, app)
	assert.Contains(t, err.Error(), "step catalog")
}

func TestApp_CloseWithoutComponents(t *testing.T) {
	app := &App{}
	assert.NoError(t, app.Close())
}
