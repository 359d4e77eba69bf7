package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/taskpriority/internal/cli"
	"github.com/cloo-solutions/taskpriority/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskpriorityd",
		Short: "TaskPriority duplicate detection daemon",
		Long:  "Runs the task API with semantic duplicate detection, and tools for migrations and threshold tuning",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.DupesCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd, os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
