package config

import (
	"os"
	"strings"
)

// ApplyEnvOverrides layers the flat environment variables named in the
// service's external-interface contract on top of an already-loaded
// config. These take precedence over the YAML file, mirroring how
// deployments typically pin secrets and per-environment URLs.
func (c *Config) ApplyEnvOverrides() {
	if v, ok := lookupEnv("POSTGRES_DSN", "MONGO_URL"); ok {
		c.Database.DSN = v
	}
	if v, ok := os.LookupEnv("DB_NAME"); ok {
		c.Database.Name = v
	}
	if v, ok := os.LookupEnv("RUGS_UPSTREAM_URL"); ok {
		c.Upstream.URL = v
	}
	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		c.Listen.CORSOrigins = splitAndTrim(v)
	}
	if v, ok := os.LookupEnv("LISTEN_ADDRESS"); ok {
		c.Listen.Address = v
	}
}

// lookupEnv returns the first set variable among names, in order.
func lookupEnv(names ...string) (string, bool) {
	for _, n := range names {
		if v, ok := os.LookupEnv(n); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
