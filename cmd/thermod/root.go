// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package main

import (
	"github.com/spf13/cobra"
)

var examples = `
# Run the controller with a simulated boiler, serving websockets on :8080
thermod run

# Run with MQTT through an in-process broker
thermod run --embedded-broker

# Print the last ten minutes of history from a running daemon
thermod replay --url ws://localhost:8080/ws --last 10m

# Show the effective configuration and its environment overrides
thermod config --env
`

type rootOptions struct {
	config string
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "thermod",
		Short:        "Boiler temperature controller with replayable history",
		Example:      examples,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&o.config, "config", "c", "", "path to a YAML configuration file")

	cmd.AddCommand(
		newRunCmd(o),
		newReplayCmd(),
		newConfigCmd(o),
	)
	return cmd
}
