package log

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	defer func() {
		Log.SetLevel(logrus.InfoLevel)
		Log.SetFormatter(&logrus.TextFormatter{})
	}()

	assert.NoError(t, Init(Config{Level: "debug", Format: "json"}))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, Log.Formatter)

	assert.NoError(t, Init(Config{Format: "text"}))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel(), "empty level keeps the current one")
	assert.IsType(t, &logrus.TextFormatter{}, Log.Formatter)

	assert.Error(t, Init(Config{Level: "verbose"}))
}
