// Package config loads nucleo's boot configuration: a JSON file decoded
// straight into a struct, with defaults filled in for anything omitted.
package config

import (
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
)

// Config is the boot-time configuration for a nucleo instance.
type Config struct {
	ProcessTableSize int    `json:"process_table_size"`
	TimeSliceMillis  int    `json:"time_slice_millis"`
	StackSize        uint32 `json:"stack_size"`
	StackBudget      uint32 `json:"stack_budget"`
	KeyboardEchoDefault bool `json:"keyboard_echo_default"`
	LogLevel         string `json:"log_level"`
}

func defaults() Config {
	return Config{
		ProcessTableSize:    32,
		TimeSliceMillis:     10,
		StackSize:           4096,
		StackBudget:         0, // 0 means unbounded
		KeyboardEchoDefault: false,
		LogLevel:            "info",
	}
}

// Load reads and decodes filePath, applying defaults for any zero-valued
// field the file omits. A missing or malformed file is fatal at boot,
// matching Iniciar_Configuracion's log.Fatal on a bad config file.
func Load(filePath string) Config {
	cfg := defaults()
	if filePath == "" {
		return cfg
	}

	f, err := os.Open(filePath)
	if err != nil {
		logrus.WithError(err).WithField("path", filePath).Fatal("could not open config file")
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		logrus.WithError(err).WithField("path", filePath).Fatal("could not decode config file")
	}
	return cfg
}
