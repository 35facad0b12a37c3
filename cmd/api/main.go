package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmaster/todolist/cmd/api/commands"
)

// @title Todo List API
// @version 1.0
// @description Multi-user to-do list service

// @host localhost:3000
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "todolist",
		Short:         "Todo list API server",
		Long:          `todolist serves a multi-user to-do list REST API backed by PostgreSQL, with image attachments hosted on Cloudinary.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewEnsureUsersCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
