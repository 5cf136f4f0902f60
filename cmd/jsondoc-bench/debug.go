package main

import (
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug SUBCOMMAND [ARGS...]",
	Short: "Run a DEBUG introspection subcommand (MEMORY, FIELDS, DEPTH, HELP, ...)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")

		eng, ks, err := openEngine(dataDir)
		if err != nil {
			return err
		}
		defer ks.Close()

		reply, err := eng.Dispatch("DEBUG", args)
		if err != nil {
			return err
		}
		printReply(reply)
		return nil
	},
}
