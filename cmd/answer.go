package main

import (
	"context"

	"github.com/spf13/cobra"

	service "github.com/okian/trekhums/internal/app"
)

func newAnswerCmd(st *runState) *cobra.Command {
	return &cobra.Command{
		Use:   "answer",
		Short: "Answer the oldest inbound message",
		Long: `Move the oldest intake file to the archive, read its header and trailer and
write an acknowledgment, or an observation listing every problem found.
Files declaring XML entities are archived and never answered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.run(cmd, service.CommandAnswer, func(ctx context.Context, svc *service.Service) (service.Outcome, error) {
				return svc.Answer(ctx)
			})
		},
	}
}
