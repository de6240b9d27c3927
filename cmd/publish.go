package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"videosum/internal/app/model"
)

var (
	publishOptions model.ProcessingOptions
	publishDryRun  bool
)

var publishCmd = &cobra.Command{
	Use:   "publish VIDEO_ID...",
	Short: "Queue summary requests for uploaded videos",
	Long: `Publish one processing request per video id with the given summary
options. Use --dry-run to preview the instruction the workers will receive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPublish,
}

func init() {
	f := publishCmd.Flags()
	f.StringVarP(&publishOptions.SummaryType, "summary-type", "s", "executive", "Summary type")
	f.StringVarP(&publishOptions.AudienceContext, "audience", "a", "", "Audience context")
	f.StringVarP(&publishOptions.CustomPrompt, "prompt", "p", "", "Custom prompt")
	f.StringVarP(&publishOptions.OutputFormat, "format", "f", "", "Output format")
	f.StringVarP(&publishOptions.DetailLevel, "detail", "d", "", "Detail level")
	f.BoolVar(&publishOptions.IncludeScreenshots, "screenshots", false, "Include screenshots of key moments")
	f.BoolVar(&publishDryRun, "dry-run", false, "Print the rendered instruction without publishing")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	pipeline := service.Pipeline()

	if publishDryRun {
		text, err := pipeline.Instructions(publishOptions)
		if err != nil {
			return err
		}
		fmt.Println(dimStyle.Render(fmt.Sprintf("Instruction for %d video(s):", len(args))))
		fmt.Println(text)
		return nil
	}

	results, err := pipeline.SubmitMetadata(ctx, model.FormData{
		VideoIDs:          args,
		ProcessingOptions: publishOptions,
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Println(failStyle.Render(fmt.Sprintf("✗ %s: %v", r.VideoID, r.Err)))
			continue
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("✓ %s queued (message %s)", r.VideoID, r.MessageID)))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d request(s) failed", failed, len(results))
	}
	return nil
}
