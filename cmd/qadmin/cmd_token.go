package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"discovery/internal/catalog"
	"discovery/internal/service"
)

var (
	tokenUserID string
	tokenEmail  string
	tokenName   string
	tokenTTL    time.Duration
)

// tokenCmd issues a bearer token signed with JWT_SECRET
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for local testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}

		id, err := service.ResolveIdentity(tokenUserID, tokenEmail, tokenName)
		if err != nil {
			return err
		}
		token, err := service.NewAuthService(cfg.Auth.JWTSecret, false, nil).IssueToken(*id, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect question catalogs",
}

// catalogValidateCmd checks a catalog file without starting the server
var catalogValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a catalog YAML file (default: built-in catalog)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		cat, err := catalog.Load(path)
		if err != nil {
			return err
		}
		printCatalog(cmd, cat)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "Subject user id")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "User email")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "Display name")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")

	catalogCmd.AddCommand(catalogValidateCmd)
}

func printCatalog(cmd *cobra.Command, cat *catalog.Catalog) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d sections\n", cat.Title, cat.Len())
	for i, sec := range cat.Sections() {
		required := 0
		for _, q := range sec.Questions {
			if q.Required {
				required++
			}
		}
		fmt.Fprintf(out, "%2d. %-12s %-32s %d questions (%d required)\n",
			i+1, sec.ID, sec.Name, len(sec.Questions), required)
	}
}
