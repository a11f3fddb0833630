package main

import (
	"fmt"

	"github.com/kbukum/whisperjob/audio"
	"github.com/kbukum/whisperjob/config"
	"github.com/kbukum/whisperjob/job"
	"github.com/kbukum/whisperjob/kafka"
	"github.com/kbukum/whisperjob/observability"
	"github.com/kbukum/whisperjob/server"
	"github.com/kbukum/whisperjob/transcription"
	"github.com/kbukum/whisperjob/validation"
)

const serviceName = "whisperjob"

// Config is the whole service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Normalizer audio.Config         `yaml:"normalizer" mapstructure:"normalizer"`
	Engine     transcription.Config `yaml:"engine" mapstructure:"engine"`
	Pipeline   job.Config           `yaml:"pipeline" mapstructure:"pipeline"`
	Server     server.Config        `yaml:"server" mapstructure:"server"`
	Kafka      kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Telemetry  observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Normalizer.ApplyDefaults()
	c.Engine.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c.Normalizer); err != nil {
		return fmt.Errorf("normalizer: %w", err)
	}
	if err := validation.Validate(c.Engine); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}
