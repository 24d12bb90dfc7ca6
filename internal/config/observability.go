package config

import (
	"fmt"
	"strings"
	"time"
)

// ObservabilityConfig contains settings for the metrics and health probe
// server.
type ObservabilityConfig struct {
	Port    string        `envconfig:"PORT" default:"9090"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s" validate:"gt=0"`

	LivenessPath  string `envconfig:"LIVENESS_PATH" default:"/healthz"`
	ReadinessPath string `envconfig:"READINESS_PATH" default:"/readyz"`
	MetricsPath   string `envconfig:"METRICS_PATH" default:"/metrics"`
}

// Validate checks if the observability configuration is valid.
func (c *ObservabilityConfig) Validate() error {
	if err := validatePort(c.Port, "observability"); err != nil {
		return err
	}

	for _, p := range []struct {
		name  string
		value string
	}{
		{"liveness", c.LivenessPath},
		{"readiness", c.ReadinessPath},
		{"metrics", c.MetricsPath},
	} {
		if !strings.HasPrefix(p.value, "/") {
			return fmt.Errorf("observability %s path must start with '/'", p.name)
		}
	}

	return nil
}
