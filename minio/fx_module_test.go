package minio

import (
	"testing"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
)

func TestFXModule_Validate(t *testing.T) {
	err := fx.ValidateApp(
		FXModule,
		metadata.FXModule,
		fx.Supply(Config{Bucket: "portmeta"}, metadata.Config{}),
	)
	assert.NoError(t, err)
}

func TestFXModule_MissingConfig(t *testing.T) {
	assert.Error(t, fx.ValidateApp(FXModule))
}
