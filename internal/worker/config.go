// Package worker provides background job processing for ApexGPS: the road
// metric refresh that keeps the cost-expression columns current.
package worker

import (
	"os"
	"time"
)

// RefreshConfig holds configuration for the metrics refresh job.
type RefreshConfig struct {
	// Timeout bounds one full refresh pass. Network-wide PostGIS updates
	// are slow; the default is generous.
	// Default: 10 minutes
	Timeout time.Duration

	// RefreshCore enables the physical metrics pass (length, curvature,
	// travel time).
	// Default: true
	RefreshCore bool

	// RefreshScenic enables the scenic scores pass (POI density, ratings).
	// Default: true
	RefreshScenic bool
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Timeout:       10 * time.Minute,
		RefreshCore:   true,
		RefreshScenic: true,
	}
}

// PubSubEnv holds the Pub/Sub wiring read from the environment.
type PubSubEnv struct {
	ProjectID        string
	SubscriptionName string
}

// PubSubEnvFromEnv reads the Pub/Sub configuration.
func PubSubEnvFromEnv() PubSubEnv {
	return PubSubEnv{
		ProjectID:        getEnvOrDefault("PUBSUB_PROJECT_ID", "apexgps-dev"),
		SubscriptionName: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "road-metrics-refresh"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
