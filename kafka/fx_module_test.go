package kafka

import (
	"testing"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
)

func TestFXModule_Validate(t *testing.T) {
	err := fx.ValidateApp(
		FXModule,
		FollowerFXModule,
		metadata.FXModule,
		fx.Supply(Config{Brokers: []string{"localhost:9092"}, GroupID: "portmeta"}, metadata.Config{}),
		fx.Invoke(func(*Publisher, metadata.Updater) {}),
	)
	assert.NoError(t, err)
}

func TestFXModule_MissingConfig(t *testing.T) {
	err := fx.ValidateApp(
		FXModule,
		fx.Invoke(func(metadata.Updater) {}),
	)
	assert.Error(t, err)
}
