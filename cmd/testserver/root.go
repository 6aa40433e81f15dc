package main

import (
	"github.com/aura-studio/testserver/testserver"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	config string
	debug  bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:          "testserver",
		Short:        "Run the echo handler on an ephemeral loopback port",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.config, "config", "", "testserver.yaml to load (default: search the working and executable directories)")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "trace bind, close and requests to stderr")

	cmd.AddCommand(newServeCommand(flags), newRequestCommand(flags))

	return cmd
}

func (f *rootFlags) options() []testserver.Option {
	var opts []testserver.Option
	if f.config != "" {
		opts = append(opts, testserver.WithConfigFile(f.config))
	} else if _, err := testserver.FindDefaultConfigFile(); err == nil {
		opts = append(opts, testserver.WithDefaultConfig())
	}
	if f.debug {
		opts = append(opts, testserver.WithDebugMode())
	}
	return opts
}
