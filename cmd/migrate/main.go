package main

import (
	"fmt" // Error output
	"os"  // Exit codes

	"notes_marketplace/internal/config" // Custom import path (Config)
	"notes_marketplace/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logging
	"github.com/spf13/cobra"     // CLI
)

// rootCmd runs the schema migration
var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig() // Load configuration
		if err != nil {
			return err
		}
		conn, err := db.Open(cfg)
		if err != nil {
			return err
		}
		return db.Migrate(conn)
	},
}

var promoteEmail string

// promoteCmd gives an existing user the admin role
var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Give the admin role to a registered user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		conn, err := db.Open(cfg)
		if err != nil {
			return err
		}
		return db.PromoteAdmin(conn, promoteEmail)
	},
}

func init() {
	promoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email of the user to promote")
	_ = promoteCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(promoteCmd)
}

// Main entry point for migration
func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
