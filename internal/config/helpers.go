package config

import (
	"cointrack/pkg/confkit"
	"cointrack/pkg/market"
)

// MustLoadDefault loads etc/cointrack.yaml from the project root and panics on error.
func MustLoadDefault() *Config {
	return MustLoad(confkit.MustProjectPath("etc/cointrack.yaml"))
}

// MustLoadUpstream loads etc/upstream.yaml on its own, for tools that only
// need the upstream providers.
func MustLoadUpstream() *market.Config {
	return market.MustLoad()
}
