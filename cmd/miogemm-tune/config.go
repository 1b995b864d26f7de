package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/miogemm/geometry"
)

// fileConfig is the optional --config YAML structure: device overrides
// and run defaults that would otherwise have to be repeated on every
// invocation's command line.
type fileConfig struct {
	Device struct {
		WavefrontSize   int  `yaml:"wavefront_size"`
		LocalMemBytes   int  `yaml:"local_mem_bytes"`
		ComputeUnits    int  `yaml:"compute_units"`
		SupportsFloat64 bool `yaml:"supports_float64"`
	} `yaml:"device"`
	Constraints   string  `yaml:"constraints"`
	Verbosity     string  `yaml:"verbosity"`
	Seed          int64   `yaml:"seed"`
	BudgetSeconds float64 `yaml:"budget_seconds"`
}

// loadFileConfig parses path with strict field checking, so a typo'd
// key is reported rather than silently ignored.
func loadFileConfig(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("miogemm-tune: reading config %q: %w", path, err)
	}

	var cfg fileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("miogemm-tune: parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// deviceInfo resolves the DeviceInfo this config describes, falling
// back to geometry.DefaultDeviceInfo field-by-field for anything left
// at its zero value.
func (c fileConfig) deviceInfo() geometry.DeviceInfo {
	info := geometry.DefaultDeviceInfo
	if c.Device.WavefrontSize != 0 {
		info.WavefrontSize = c.Device.WavefrontSize
	}
	if c.Device.LocalMemBytes != 0 {
		info.LocalMemBytes = c.Device.LocalMemBytes
	}
	if c.Device.ComputeUnits != 0 {
		info.ComputeUnits = c.Device.ComputeUnits
	}
	if c.Device.SupportsFloat64 {
		info.SupportsFloat64 = true
	}
	return info
}
