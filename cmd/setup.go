package cmd

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"videosum/internal/storage"
	"videosum/pkg/config"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Long:  `Configure secrets, Google sign-in and cloud resources, and write a .env file.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎬 Video Summary Setup"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Creating directories", func() error { return createDirectories(cmd.Context()) }},
		{"Configuring environment", configureEnv},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func createDirectories(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	local := storage.NewLocalStorage(cfg.Storage.LocalDir, cfg.Storage.StagingDir)
	if err := local.EnsureDirectories(); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Created directories"))
	return nil
}

func configureEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureSecret(env); err != nil {
		return err
	}

	if err := configureGCP(env); err != nil {
		return err
	}

	if err := configureGoogleSignIn(env); err != nil {
		return err
	}

	if err := configureKafka(env); err != nil {
		return err
	}

	return writeEnvFile(env)
}

func configureSecret(env map[string]string) error {
	var secret string
	if err := huh.NewInput().
		Title("API secret key").
		Description("Signs session tokens. Leave empty to generate one.").
		EchoMode(huh.EchoModePassword).
		Value(&secret).
		Run(); err != nil {
		return err
	}

	secret = strings.TrimSpace(secret)
	if secret == "" {
		generated, err := generateSecret()
		if err != nil {
			return err
		}
		secret = generated
		fmt.Println(successStyle.Render("✓ Generated API secret key"))
	}
	env["API_SECRET_KEY"] = secret
	return nil
}

func configureGCP(env map[string]string) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("Required for Cloud Storage uploads and Pub/Sub requests").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		return nil
	}

	if !commandExists("gcloud") {
		fmt.Println(warnStyle.Render("gcloud CLI not found - install from https://cloud.google.com/sdk/docs/install"))
		return nil
	}

	project, err := getOrCreateGCPProject()
	if err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("GCP setup skipped: %v", err)))
		return nil
	}

	env["GOOGLE_CLOUD_PROJECT"] = project

	if err := enableGCPAPIs(project); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
	}

	if err := setupResources(env, project); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Resource setup skipped: %v", err)))
	}

	return nil
}

func getOrCreateGCPProject() (string, error) {
	existing := getActiveProject()

	var choice string
	options := []huh.Option[string]{
		huh.NewOption("Create new project", "new"),
	}

	if existing != "" {
		options = append([]huh.Option[string]{
			huh.NewOption(fmt.Sprintf("Use current: %s", existing), existing),
		}, options...)
	}

	options = append(options, huh.NewOption("Enter project ID manually", "manual"))

	if err := huh.NewSelect[string]().
		Title("Google Cloud Project").
		Options(options...).
		Value(&choice).
		Run(); err != nil {
		return "", err
	}

	switch choice {
	case "new":
		return createGCPProject()
	case "manual":
		var projectID string
		if err := huh.NewInput().
			Title("Project ID").
			Value(&projectID).
			Run(); err != nil {
			return "", err
		}
		return strings.TrimSpace(projectID), nil
	default:
		return choice, nil
	}
}

func getActiveProject() string {
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func createGCPProject() (string, error) {
	var projectID string
	if err := huh.NewInput().
		Title("New Project ID").
		Description("Must be globally unique, 6-30 chars, lowercase letters, digits, hyphens").
		Placeholder("video-summary-12345").
		Value(&projectID).
		Validate(func(s string) error {
			if len(s) < 6 || len(s) > 30 {
				return fmt.Errorf("must be 6-30 characters")
			}
			return nil
		}).
		Run(); err != nil {
		return "", err
	}

	err := runWithSpinner("Creating project", func() error {
		return runSetupCmd("gcloud", "projects", "create", projectID)
	})
	if err != nil {
		return "", err
	}

	_ = runSetupCmd("gcloud", "config", "set", "project", projectID)

	return projectID, nil
}

func enableGCPAPIs(project string) error {
	apis := []string{
		"storage.googleapis.com",
		"pubsub.googleapis.com",
		"secretmanager.googleapis.com",
		"iamcredentials.googleapis.com",
	}

	return runWithSpinner("Enabling APIs", func() error {
		args := append([]string{"services", "enable"}, apis...)
		args = append(args, "--project", project)
		return runSetupCmd("gcloud", args...)
	})
}

func setupResources(env map[string]string, project string) error {
	bucket := project + "-videos"
	topic := "video-summary-requests"
	var create bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bucket name").
				Value(&bucket).
				Validate(required("Bucket name")),
			huh.NewInput().
				Title("Pub/Sub topic").
				Value(&topic).
				Validate(required("Pub/Sub topic")),
			huh.NewConfirm().
				Title("Create them now?").
				Description("Skip if they already exist").
				Value(&create),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	bucket = strings.TrimSpace(bucket)
	topic = strings.TrimSpace(topic)
	env["GCS_BUCKET"] = bucket
	env["PUBSUB_TOPIC"] = topic

	if !create {
		return nil
	}

	if err := runWithSpinner("Creating bucket", func() error {
		return runSetupCmd("gcloud", "storage", "buckets", "create", "gs://"+bucket, "--project", project)
	}); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Bucket not created: %v", err)))
	}

	return runWithSpinner("Creating topic", func() error {
		return runSetupCmd("gcloud", "pubsub", "topics", "create", topic, "--project", project)
	})
}

func configureGoogleSignIn(env map[string]string) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Setup Google sign-in?").
		Description("Required for users to log in to the upload page").
		Value(&setup).
		Run(); err != nil || !setup {
		return err
	}

	fmt.Println(infoStyle.Render(`
To create OAuth credentials:
1. Go to https://console.cloud.google.com/apis/credentials
2. Click "Create Credentials" → "OAuth client ID"
3. Choose "Web application" as application type
4. Add http://localhost:8080/auth/google/callback as a redirect URI
5. Copy the Client ID and Client Secret
`))

	var clientID, clientSecret string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Google Client ID").
				Value(&clientID),
			huh.NewInput().
				Title("Google Client Secret").
				EchoMode(huh.EchoModePassword).
				Value(&clientSecret),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)

	if clientID != "" {
		env["GOOGLE_CLIENT_ID"] = clientID
	}
	if clientSecret != "" {
		env["GOOGLE_CLIENT_SECRET"] = clientSecret
	}

	return nil
}

func configureKafka(env map[string]string) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Use Kafka instead of Pub/Sub?").
		Description("Set queue.backend: kafka in config.yaml as well (optional)").
		Value(&setup).
		Run(); err != nil {
		return err
	}

	if !setup {
		return nil
	}

	var brokers string
	if err := huh.NewInput().
		Title("Kafka brokers").
		Description("Comma separated host:port list").
		Placeholder("localhost:9092").
		Value(&brokers).
		Run(); err != nil {
		return err
	}

	brokers = strings.TrimSpace(brokers)
	if brokers != "" {
		env["KAFKA_BROKERS"] = brokers
	}
	return nil
}

func writeEnvFile(env map[string]string) error {
	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	order := []string{
		"API_SECRET_KEY",
		"GOOGLE_CLOUD_PROJECT",
		"GCS_BUCKET",
		"PUBSUB_TOPIC",
		"GOOGLE_CLIENT_ID",
		"GOOGLE_CLIENT_SECRET",
		"KAFKA_BROKERS",
	}

	for _, key := range order {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	printNextSteps()
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Check the configuration: videosum auth status")
	fmt.Println("  2. Start the server: videosum serve --open")
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
