package registry

import (
	"net/http"
	"testing"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestFXModule_Validate(t *testing.T) {
	err := fx.ValidateApp(
		FXModule,
		metadata.FXModule,
		fx.Supply(Config{URL: "http://localhost:8085"}, metadata.Config{}),
		fx.Invoke(func(*Client, Authority, metadata.Updater, metadata.Loader) {}),
	)
	assert.NoError(t, err)
}

func TestAuthorityFXModule(t *testing.T) {
	var (
		a *AuthorityServer
		m *metadata.Manager
	)
	app := fxtest.New(t,
		AuthorityFXModule,
		metadata.FXModule,
		fx.Supply(AuthorityConfig{Address: "127.0.0.1:0"}, metadata.Config{}),
		fx.Populate(&a, &m),
	)
	app.RequireStart()
	defer app.RequireStop()

	rec := serve(a, http.MethodPost, "/types/10/fields", `{"type_name":"Person","fields":[{"id":1,"name":"name","type":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), m.GetVersion())
}
