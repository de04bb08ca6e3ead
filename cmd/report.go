package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	service "github.com/okian/trekhums/internal/app"
)

func newReportCmd(st *runState) *cobra.Command {
	var gpxPath, label string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a usage report from a GPX trek",
		Long: `Read a Garmin GPX activity, redact the configured window of positions,
and write the UC50902 usage report as <uid>.xml into the output directory.`,
		Example: `  trekhums report --gpx activity_4588550232.gpx
  trekhums report --gpx ride.gpx --label "col du Galibier"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if gpxPath == "" {
				return errors.New("--gpx is required")
			}
			return st.run(cmd, service.CommandReport, func(ctx context.Context, svc *service.Service) (service.Outcome, error) {
				return svc.Report(ctx, gpxPath, label)
			})
		},
	}
	cmd.Flags().StringVar(&gpxPath, "gpx", "", "GPX activity file")
	cmd.Flags().StringVar(&label, "label", "", "trek name used in the message id (default: trek_label)")
	return cmd
}
