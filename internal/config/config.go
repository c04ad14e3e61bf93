// Package config loads process-wide settings for the control connection
// daemon from the environment.
package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds the knobs an operator can tune without recompiling.
type Settings struct {
	// ContactPointsFile points at a YAML file listing bootstrap hosts,
	// used when SeedSource is "static".
	ContactPointsFile string `envconfig:"CONTACT_POINTS_FILE" default:"/etc/cqlcontrol/contact_points.yaml"`

	// SeedSource selects how the initial host list is discovered:
	// "static" (ContactPointsFile) or "kubernetes" (K8sNamespace/K8sService).
	SeedSource   string `envconfig:"SEED_SOURCE" default:"static"`
	K8sNamespace string `envconfig:"K8S_NAMESPACE" default:"default"`
	K8sService   string `envconfig:"K8S_SERVICE" default:"cluster-headless"`

	ProtocolVersion int    `envconfig:"PROTOCOL_VERSION" default:"4"`
	Port            int    `envconfig:"PORT" default:"9042"`
	AuthUsername    string `envconfig:"AUTH_USERNAME" default:""`
	AuthPassword    string `envconfig:"AUTH_PASSWORD" default:""`

	ConnectTimeout string `envconfig:"CONNECT_TIMEOUT" default:"5s"`
	RequestTimeout string `envconfig:"REQUEST_TIMEOUT" default:"10s"`

	ReconnectBaseDelay string `envconfig:"RECONNECT_BASE_DELAY" default:"1s"`
	ReconnectMaxDelay  string `envconfig:"RECONNECT_MAX_DELAY" default:"60s"`

	SchemaDBPath string `envconfig:"SCHEMA_DB_PATH" default:"/app/data/schema.db"`

	// HousekeepingCron is a robfig/cron schedule for the periodic full
	// topology refresh safety net.
	HousekeepingCron string `envconfig:"HOUSEKEEPING_CRON" default:"@every 10m"`

	DebugAddr string `envconfig:"DEBUG_ADDR" default:":9043"`
}

var Cfg Settings

// Load populates Cfg from the environment, prefixed CQLCONTROL_.
func Load() {
	if err := envconfig.Process("CQLCONTROL", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}
