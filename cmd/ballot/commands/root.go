package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for ballot
var RootCmd = &cobra.Command{
	Use:              "ballot",
	Short:            "ballot delta consensus",
	TraverseChildren: true,
}
