package main

import (
	"github.com/spf13/cobra"
)

const serviceName = "pipekit"

type globalFlags struct {
	configFile string
	envFile    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Run dataflow pipelines built from registered nodes",
		Long: `pipekit runs pipelines described as serialized records (JSON or YAML).

Examples:
  pipekit run pipelines/shout.yaml --arg output=hello
  pipekit run shout --stream
  pipekit serve --config pipekit.yml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to configuration file (YAML)")
	pf.StringVar(&flags.envFile, "env-file", "", "Path to .env file")
	pf.StringVarP(&flags.logLevel, "log-level", "l", "", "Log level override (trace, debug, info, warn, error, disabled)")

	root.AddCommand(
		newRunCmd(&flags),
		newServeCmd(&flags),
		newRegistryCmd(&flags),
		newVersionCmd(),
	)
	return root
}
