package bootstrap

import (
	"github.com/kbukum/whisperjob/config"
)

// Config is the constraint for application config types. Embedding
// config.ServiceConfig with mapstructure:",squash" satisfies it.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
