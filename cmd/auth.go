package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"videosum/internal/auth"
	"videosum/pkg/config"
)

var (
	authInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	authSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	authErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var (
	tokenEmail string
	tokenName  string
	tokenTTL   time.Duration
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage sign-in and session tokens",
	Long:  `Inspect the Google sign-in configuration or mint session tokens for scripts.`,
}

var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a session token for an allowed email",
	Long: `Issue a signed session token, usable as the "token" cookie when calling
the API from scripts. The email must belong to an allowed domain.`,
	RunE: runAuthToken,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check sign-in and cloud configuration",
	RunE:  runAuthStatus,
}

func init() {
	authTokenCmd.Flags().StringVarP(&tokenEmail, "email", "e", "", "Email to issue the token for")
	authTokenCmd.Flags().StringVarP(&tokenName, "name", "n", "", "Display name")
	authTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to auth.token_ttl_minutes)")
	_ = authTokenCmd.MarkFlagRequired("email")

	authCmd.AddCommand(authTokenCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.APISecretKey == "" {
		return errors.New("API_SECRET_KEY must be set to sign tokens")
	}

	if err := auth.CheckEmailDomain(tokenEmail, cfg.Auth.AllowedDomains); err != nil {
		return err
	}

	ttl := tokenTTL
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL()
	}

	token, err := auth.NewTokenManager(cfg.APISecretKey).Issue(strings.TrimSpace(tokenEmail), tokenName, ttl)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(authInfoStyle.Render("\nConfiguration Status:\n"))

	if cfg.APISecretKey != "" {
		fmt.Println(authSuccessStyle.Render("✓ Session signing: API_SECRET_KEY configured"))
	} else {
		fmt.Println(authErrorStyle.Render("✗ Session signing: missing API_SECRET_KEY"))
	}

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		fmt.Println(authSuccessStyle.Render("✓ Google sign-in: client configured"))
		fmt.Println(authInfoStyle.Render("  Redirect URL: " + cfg.Auth.RedirectURL))
	} else {
		fmt.Println(authErrorStyle.Render("✗ Google sign-in: missing GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET"))
	}
	fmt.Println(authInfoStyle.Render("  Allowed domains: " + strings.Join(cfg.Auth.AllowedDomains, ", ")))

	if cfg.GCPProject != "" {
		fmt.Println(authSuccessStyle.Render("✓ Google Cloud: project " + cfg.GCPProject))
	} else if cfg.Storage.Backend == "gcs" || cfg.Queue.Backend == "pubsub" {
		fmt.Println(authErrorStyle.Render("✗ Google Cloud: missing GOOGLE_CLOUD_PROJECT"))
	} else {
		fmt.Println(authInfoStyle.Render("○ Google Cloud: not configured (optional)"))
	}

	fmt.Println(authInfoStyle.Render(fmt.Sprintf("○ Storage: %s bucket %q", cfg.Storage.Backend, cfg.Storage.Bucket)))
	if cfg.Storage.Backend == "s3" && (cfg.S3AccessKey == "" || cfg.S3SecretKey == "") {
		fmt.Println(authInfoStyle.Render("  S3 keys not set, using the default AWS credential chain"))
	}
	if cfg.Storage.DummySignedURLs {
		fmt.Println(authErrorStyle.Render("  Dummy signed URLs are enabled, uploads will not reach the bucket"))
	}
	fmt.Println(authInfoStyle.Render(fmt.Sprintf("○ Queue: %s topic %q", cfg.Queue.Backend, cfg.Queue.Topic)))

	if err := cfg.Validate(); err != nil {
		fmt.Println(authErrorStyle.Render("\n✗ " + err.Error()))
	} else {
		fmt.Println(authSuccessStyle.Render("\n✓ Configuration is valid"))
	}

	fmt.Println()
	return nil
}
