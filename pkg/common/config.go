package common

import (
	"fmt"
	"io/ioutil"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const (
	// defaultCapacity is used when a Config doesn't specify one.
	defaultCapacity uint32 = 1024

	// defaultSoftLimit is used when a Config doesn't specify one.
	defaultSoftLimit uint32 = 768

	// defaultCheckpointPath is used when a Config doesn't specify one.
	defaultCheckpointPath string = "/var/lib/undorequest/checkpoint"
)

// Config defines the configuration settings for an undo request manager.
type Config struct {
	// Capacity is the hard upper bound on simultaneous non-FREE requests.
	Capacity uint32 `yaml:"capacity"`

	// SoftLimit is the utilization threshold above which PerformInBackground(force=false)
	// refuses to accept new background work.
	SoftLimit uint32 `yaml:"softLimit"`

	// CheckpointPath is where the serialized manager state is written at
	// shutdown and read back at startup.
	CheckpointPath string `yaml:"checkpointPath"`
}

// NewDefaultConfig returns a new default undo request manager configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Capacity:       defaultCapacity,
		SoftLimit:      defaultSoftLimit,
		CheckpointPath: defaultCheckpointPath,
	}
}

// Validate validates a Config and returns an error if it's invalid.
func (conf *Config) Validate() error {
	if conf.Capacity == 0 {
		return fmt.Errorf("invalid capacity provided in config")
	}
	if conf.SoftLimit > conf.Capacity {
		return fmt.Errorf("softLimit (%d) cannot exceed capacity (%d)", conf.SoftLimit, conf.Capacity)
	}
	if conf.CheckpointPath == "" {
		return fmt.Errorf("invalid checkpoint path provided in config")
	}
	return nil
}

// LoadFromFile loads the config from the file. It assumes that config already has the defaults.
// In case of an error, it leaves the config untouched.
func (conf *Config) LoadFromFile(path string) {
	log.Info(fmt.Sprintf("common::config::LoadFromFile; loading config from file %s", path))
	data, err := ioutil.ReadFile(path)
	if err != nil {
		log.Error(fmt.Sprintf("common::config::LoadFromFile; error reading config from file %s, error %s", path, err))
		return
	}
	fconf := Config{}
	err = yaml.Unmarshal(data, &fconf)
	if err != nil {
		log.Error(fmt.Sprintf("common::config::LoadFromFile; error unmarshalling config from file %s, error %s", path, err))
		return
	}

	log.WithFields(log.Fields{"config": fconf}).Debug("common::config::LoadFromFile; read contents from the file")

	if fconf.Capacity != 0 {
		conf.Capacity = fconf.Capacity
	}
	if fconf.SoftLimit != 0 {
		conf.SoftLimit = fconf.SoftLimit
	}
	if fconf.CheckpointPath != "" {
		conf.CheckpointPath = fconf.CheckpointPath
	}
}
