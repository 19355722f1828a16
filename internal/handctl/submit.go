package handctl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/pkg/logger"
)

const (
	defaultServerURL    = "http://localhost:9080"
	defaultTimeout      = 30 * time.Second
	defaultWaitTimeout  = 5 * time.Minute
	defaultPollInterval = time.Second
)

func createSubmitCmd() *cobra.Command {
	var (
		serverURL    string
		timeout      time.Duration
		wait         bool
		waitTimeout  time.Duration
		pollInterval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit [file]",
		Short: "Submit an analysis job to a running server",
		Long:  `Posts an analysis job ({"hand_id", "frames", ...}) to /analyses. With --wait, polls until the analysis is accepted, needs manual review, or fails.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job model.AnalysisJob
			if err := decodeInput(cmd, args, &job); err != nil {
				return err
			}
			if strings.TrimSpace(job.HandID) == "" || len(job.Frames) == 0 {
				return fmt.Errorf("%w: hand_id and frames are required", ErrBadInput)
			}

			log := cmdLogger(cmd)
			client := NewClient(serverURL, timeout)
			res, err := client.Submit(cmd.Context(), job)
			if err != nil {
				return err
			}
			log.Info(cmd.Context(), "analysis submitted",
				logger.String("analysisID", res.Analysis.ID),
				logger.String("handID", res.Analysis.HandID),
				logger.Bool("duplicate", res.Duplicate),
			)
			if !wait {
				return printJSON(cmd, res)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
			defer cancel()
			a, err := client.Wait(ctx, res.Analysis.ID, pollInterval)
			if err != nil {
				return err
			}
			return printJSON(cmd, a)
		},
	}
	cmd.Flags().StringVar(&serverURL, "url", defaultServerURL, "base URL of the handrecon server")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultTimeout, "HTTP request timeout")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the analysis reaches a terminal status")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", defaultWaitTimeout, "give up waiting after this long")
	cmd.Flags().DurationVar(&pollInterval, "poll", defaultPollInterval, "polling interval for --wait")
	return cmd
}
