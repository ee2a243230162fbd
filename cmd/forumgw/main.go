package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nasermirzaei89/forumgw"
	"github.com/nasermirzaei89/forumgw/seed"
	"github.com/spf13/cobra"
)

// Version is set via ldflags during build.
var Version = "dev"

func main() {
	ctx := context.Background()

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(forumgw.NewLogger())

	err = rootCmd.ExecuteContext(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "command failed", "error", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "forumgw",
	Short:         "ForumGW student forum server",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := forumgw.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		app, err := forumgw.NewApp(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}

		return app.Run(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := forumgw.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return forumgw.MigrateUp(cmd.Context(), cfg)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := forumgw.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return forumgw.MigrateDown(cmd.Context(), cfg)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		users, _ := cmd.Flags().GetInt("users")
		posts, _ := cmd.Flags().GetInt("posts")
		modules, _ := cmd.Flags().GetInt("modules")
		comments, _ := cmd.Flags().GetInt("comments")

		cfg, err := forumgw.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		app, err := forumgw.NewApp(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}

		summary, err := app.Seed(cmd.Context(), seed.Options{
			Users:           users,
			Posts:           posts,
			Modules:         modules,
			CommentsPerPost: comments,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(
			cmd.OutOrStdout(),
			"seeded %d users, %d modules, %d posts, %d comments, %d votes\n",
			summary.Users,
			summary.Modules,
			summary.Posts,
			summary.Comments,
			summary.Votes,
		)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	seedCmd.Flags().Int("users", 10, "Number of users to create")
	seedCmd.Flags().Int("posts", 20, "Number of posts to create")
	seedCmd.Flags().Int("modules", 5, "Number of modules to create")
	seedCmd.Flags().Int("comments", 3, "Maximum number of comments per post")
}
