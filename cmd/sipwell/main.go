package main

import (
	"log"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sipwell",
		Short:         "Telegram bot that tracks water intake and nudges you to stay on pace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newResetUserCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("sipwell: %v", err)
	}
}
