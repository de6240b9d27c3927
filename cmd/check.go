package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check VIDEO_ID...",
	Short: "Check whether videos reached the bucket",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	missing := 0
	for _, s := range service.Pipeline().CheckUploads(ctx, args) {
		switch {
		case s.Err != nil:
			missing++
			fmt.Println(failStyle.Render(fmt.Sprintf("✗ %s: %v", s.VideoID, s.Err)))
		case s.Uploaded:
			fmt.Println(okStyle.Render("✓ " + s.VideoID))
		default:
			missing++
			fmt.Println(dimStyle.Render("○ " + s.VideoID + " (not uploaded yet)"))
		}
	}

	fmt.Printf("\n%d of %d video(s) in %s\n", len(args)-missing, len(args), service.Store().Bucket())
	return nil
}
