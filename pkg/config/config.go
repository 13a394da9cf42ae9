// Package config loads the simulation's tunable parameters from a JSON
// file, falling back to the values the original simulator hard-coded when
// no file is given.
package config

import (
	"encoding/json"
	"os"
)

// Config holds every tunable the simulation needs to run.
type Config struct {
	GNMIPort int `json:"gnmi_port"`

	RouterCount       int `json:"router_count"`
	SimulationSeconds int `json:"simulation_seconds"`
	Seed              int64 `json:"seed"`

	TxInterval   int `json:"tx_interval_sec"`
	TxJitterMax  int `json:"tx_interval_jitter_sec"`
	DeadInterval int `json:"dead_interval_sec"`
	DefaultTTL   int `json:"default_packet_ttl"`

	AreaX float64 `json:"area_x_meters"`
	AreaY float64 `json:"area_y_meters"`

	MobilityMinVelocity float64 `json:"mobility_min_velocity"`
	MobilityMaxVelocity float64 `json:"mobility_max_velocity"`

	Interfaces []InterfaceConfig `json:"interfaces"`

	LogDir string `json:"log_dir"`
}

// InterfaceConfig describes one interface profile a router carries.
type InterfaceConfig struct {
	PathType             string  `json:"path_type"`
	RangeMeters          float64 `json:"range_meters"`
	BandwidthUnitsPerSec float64 `json:"bandwidth_units_per_sec"`
	LossPercent          float64 `json:"loss_percent"`
}

// Load reads configuration from a JSON file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the constants the original simulator hard-coded:
// 30 routers, a one-hour run, a 30s advertisement interval plus 0-7s of
// added jitter, a
// 91s dead interval and a default TTL of 16, moving within a 1000x1000
// meter area, over the four heterogeneous tetra/wifi interface classes.
func DefaultConfig() *Config {
	return &Config{
		GNMIPort:          50099,
		RouterCount:       30,
		SimulationSeconds: 3600,
		Seed:              1,
		TxInterval:        30,
		TxJitterMax:       7,
		DeadInterval:      91,
		DefaultTTL:        16,
		AreaX:             1000,
		AreaY:             1000,
		MobilityMinVelocity: 1,
		MobilityMaxVelocity: 5,
		Interfaces: []InterfaceConfig{
			{PathType: "tetra00", RangeMeters: 300, BandwidthUnitsPerSec: 2000, LossPercent: 10},
			{PathType: "tetra01", RangeMeters: 100, BandwidthUnitsPerSec: 30000, LossPercent: 30},
			{PathType: "wifi00", RangeMeters: 200, BandwidthUnitsPerSec: 5000, LossPercent: 5},
			{PathType: "wifi01", RangeMeters: 50, BandwidthUnitsPerSec: 10000, LossPercent: 20},
		},
		LogDir: "logs",
	}
}
