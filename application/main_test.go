package application_test

import (
	"os"
	"testing"

	"predictions/config"
)

func TestMain(m *testing.M) {
	config.SetTestConfig(config.NewTestConfig())
	code := m.Run()
	config.ResetConfig()
	os.Exit(code)
}
