package main

import "github.com/spf13/cobra"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("tansaku version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
