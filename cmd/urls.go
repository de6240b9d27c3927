package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"videosum/internal/app"
	"videosum/internal/app/model"
	"videosum/pkg/config"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var urlsContentType string

var urlsCmd = &cobra.Command{
	Use:   "urls FILE...",
	Short: "Issue signed upload URLs for file names",
	Long:  `Mint a video id and a signed PUT URL for every file name given.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runURLs,
}

func init() {
	urlsCmd.Flags().StringVar(&urlsContentType, "content-type", "", "Content type sent with every upload")
	rootCmd.AddCommand(urlsCmd)
}

func runURLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	files := make([]model.FileDescriptor, len(args))
	for i, name := range args {
		files[i] = model.FileDescriptor{Filename: name, ContentType: urlsContentType}
	}

	failed := 0
	for _, r := range service.Pipeline().RequestUploadURLs(ctx, files) {
		if r.Err != nil {
			failed++
			fmt.Println(failStyle.Render(fmt.Sprintf("✗ %s: %v", r.Filename, r.Err)))
			continue
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("✓ %s → %s", r.Filename, r.Entry.VideoID)))
		fmt.Println(dimStyle.Render("  " + r.Entry.SignedURL))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(files))
	}
	return nil
}

func loadService(ctx context.Context) (*app.Service, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.BuildService(ctx, cfg, nil)
}
