package constants

const (
	ConfigName   = "config"
	ConfigFormat = "yaml"

	// EnvPrefix is prepended to every environment override, e.g. CLINICA_DATABASE_HOST.
	EnvPrefix = "CLINICA"

	// EventPrefix namespaces every subject published on NATS.
	EventPrefix = "clinica"
)
