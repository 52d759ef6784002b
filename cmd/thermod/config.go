// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coffeepid/thermo/config"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	var env bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.config)
			if err != nil {
				return err
			}
			data, err := cfg.Encode()
			if err != nil {
				return err
			}
			out := c.OutOrStdout()
			fmt.Fprint(out, string(data))
			if env {
				fmt.Fprintln(out)
				for _, name := range cfg.EnvNames() {
					fmt.Fprintf(out, "# %s\n", name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&env, "env", false, "also list the environment overrides")
	return cmd
}
