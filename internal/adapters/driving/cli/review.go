package cli

import (
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review [pr-url]",
	Short: "Review a GitHub pull request against the indexed standards",
	Long: `Fetches the pull request, selects the applicable standards (mandatory
plus file-conditional), asks the review model for findings and posts the
review. Comment targets are validated against the diff: findings on lines
outside the change are moved to the nearest added line or dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	pullURL := args[0]
	ctx := cmd.Context()

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	svc, err := d.newReviewService(ctx)
	if err != nil {
		return err
	}

	result, err := svc.ReviewPull(ctx, pullURL)
	if err != nil {
		return err
	}

	cmd.Printf("Reviewed %s\n", result.PullURL)
	if result.Analysis != nil {
		cmd.Printf("  Recommendation: %s\n", result.Analysis.Recommendation)
		cmd.Printf("  Findings: %d (posted %d, dropped %d, summary-only %d)\n",
			len(result.Analysis.Findings), result.Posted, result.Dropped, result.Truncated)
	}
	if result.ReviewID != 0 {
		cmd.Printf("  Review ID: %d\n", result.ReviewID)
	}
	for _, w := range result.Warnings {
		cmd.Printf("  note: %s\n", w)
	}
	return nil
}
