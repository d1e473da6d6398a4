package commands

import (
	"github.com/mosaicnetworks/ballot/src/config"
)

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Ballot config.Config `mapstructure:",squash"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Ballot: *config.NewDefaultConfig(),
	}
}
