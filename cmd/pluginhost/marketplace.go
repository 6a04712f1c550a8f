package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ikey168/Modulo-sub007/internal/models"
	"github.com/Ikey168/Modulo-sub007/internal/plugins"
)

// searchCmd queries every configured repository and prints the ranked
// aggregate, the same view a marketplace front end would render.
func searchCmd() *cobra.Command {
	var category string
	var max int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the configured plugin repositories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := newRepositoryClient(cfg)

			ctx, cancel := context.WithTimeout(context.Background(), cfg.ReadTimeout())
			defer cancel()

			entries, err := client.Search(ctx, args[0], category, max)
			if err != nil {
				return err
			}
			printEntries(entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "restrict results to one category")
	cmd.Flags().IntVar(&max, "max", 20, "maximum number of results")
	return cmd
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories offered across the configured repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := newRepositoryClient(cfg)

			ctx, cancel := context.WithTimeout(context.Background(), cfg.ReadTimeout())
			defer cancel()

			cats, err := client.Categories(ctx)
			if err != nil {
				return err
			}
			for _, cat := range cats {
				fmt.Println(cat)
			}
			return nil
		},
	}
}

func featuredCmd() *cobra.Command {
	var max int
	cmd := &cobra.Command{
		Use:   "featured",
		Short: "List featured plugins across the configured repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := newRepositoryClient(cfg)

			ctx, cancel := context.WithTimeout(context.Background(), cfg.ReadTimeout())
			defer cancel()

			entries, err := client.Featured(ctx, max)
			if err != nil {
				return err
			}
			printEntries(entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&max, "max", 20, "maximum number of results")
	return cmd
}

func printEntries(entries []models.RemoteEntry) {
	for _, e := range entries {
		verified := ""
		if e.Verified {
			verified = "verified"
		}
		fmt.Printf("%s\t%s\t%s\t%.1f\t%d\t%s\n",
			e.ID, e.Name, e.Version, e.Rating, e.DownloadCount, verified)
	}
}

// validateCmd runs the submission validator against a candidate bundle
// without installing anything, printing every error and warning.
func validateCmd() *cobra.Command {
	var meta models.SubmissionMetadata
	cmd := &cobra.Command{
		Use:   "validate <bundle-path>",
		Short: "Validate a candidate plugin bundle and its submission metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sub := &plugins.Submission{BundlePath: args[0], Metadata: meta}
			result := plugins.NewSubmissionValidator(cfg.APIMajorVersion).Validate(sub)

			for _, w := range result.Warnings {
				fmt.Printf("warning: %s\n", w)
			}
			for _, e := range result.Errors {
				fmt.Printf("error: %s\n", e)
			}
			fmt.Printf("checksum: %s\nsize: %d bytes\n", result.ComputedChecksum, result.ComputedSize)

			if !result.Accepted() {
				return fmt.Errorf("submission rejected (%d errors)", len(result.Errors))
			}
			fmt.Println("submission accepted")
			return nil
		},
	}
	cmd.Flags().StringVar(&meta.Name, "name", "", "submission name")
	cmd.Flags().StringVar(&meta.Version, "version", "", "submission semantic version")
	cmd.Flags().StringVar(&meta.Description, "description", "", "submission description")
	cmd.Flags().StringVar(&meta.DeveloperEmail, "email", "", "developer contact email")
	cmd.Flags().StringVar(&meta.Category, "category", "", "submission category")
	cmd.Flags().StringVar(&meta.HomepageURL, "homepage", "", "homepage URL")
	cmd.Flags().StringVar(&meta.RepositoryURL, "repository", "", "source repository URL")
	return cmd
}

// clearCacheCmd evicts downloaded remote bundles, either everything or
// only entries older than --older-than.
func clearCacheCmd() *cobra.Command {
	var olderThan string
	cmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Evict cached remote bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			h, err := newHost(cfg)
			if err != nil {
				return err
			}
			defer h.store.Close()

			if strings.TrimSpace(olderThan) == "" {
				return h.remote.ClearCache()
			}
			age, err := time.ParseDuration(olderThan)
			if err != nil {
				return fmt.Errorf("parse --older-than: %w", err)
			}
			return h.remote.ClearCacheOlderThan(age)
		},
	}
	cmd.Flags().StringVar(&olderThan, "older-than", "", "only evict entries older than this duration (e.g. 72h)")
	return cmd
}
