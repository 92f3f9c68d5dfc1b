package instance

import (
	"os"

	"github.com/angelmondragon/nutriflow-backend/pkg/env"
)

// ID identifies the running process in logs. It prefers an explicit
// NUTRIFLOW_INSTANCE_ID, then the platform dyno name, then the hostname.
func ID() string {
	if id := env.First("", "NUTRIFLOW_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
