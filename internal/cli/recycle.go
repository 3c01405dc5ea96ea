package cli

import (
	"fmt"

	"reciclo/internal/models"

	"github.com/spf13/cobra"
)

func (r *runner) recycleCommand() *cobra.Command {
	var form models.RecyclingForm
	cmd := &cobra.Command{
		Use:   "recycle",
		Short: "Register recycled bottles",
		Long: `Register recycled bottles. Pass --type Outro with --custom-type, or --volume Outro with
--custom-volume, for values outside the usual choices.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res := r.app.Recycling.Submit(cmd.Context(), form)
			if res == nil {
				return ErrFailed
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Coins earned: %d\n", res.CoinsEarned)
			if len(res.NewAchievements) > 0 {
				fmt.Fprintln(w, "New achievements:")
				printAchievements(w, res.NewAchievements)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&form.BottleType, "type", "", "bottle type, or Outro")
	cmd.Flags().StringVar(&form.CustomBottleType, "custom-type", "", "bottle type when --type is Outro")
	cmd.Flags().StringVar(&form.Volume, "volume", "", "bottle volume, or Outro")
	cmd.Flags().StringVar(&form.CustomVolume, "custom-volume", "", "bottle volume when --volume is Outro")
	cmd.Flags().IntVar(&form.Quantity, "quantity", 1, "number of bottles")
	return cmd
}

func (r *runner) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show coins, level, recycling history and achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, ok := r.app.Recycling.Dashboard(cmd.Context())
			if !ok {
				return ErrFailed
			}
			printDashboard(cmd.OutOrStdout(), d)
			return nil
		},
	}
}
