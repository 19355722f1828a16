package handctl

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/handrecon/internal/domain/assemble"
	"github.com/okian/handrecon/internal/domain/consistency"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/namematch"
)

// BuildInput is the document read by the build command. A bare JSON array
// is taken as Batches with empty metadata.
type BuildInput struct {
	Batches  []model.VisionBatchResult `json:"batches"`
	Metadata model.RunMetadata         `json:"metadata"`
}

// BuildOutput is what the build command prints.
type BuildOutput struct {
	Hand   model.HandHistory  `json:"hand"`
	Report consistency.Report `json:"report"`
}

func parseBuildInput(data []byte) (BuildInput, error) {
	var in BuildInput
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		if err := json.Unmarshal(data, &in.Batches); err != nil {
			return BuildInput{}, fmt.Errorf("%w: %w", ErrBadInput, err)
		}
		return in, nil
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return BuildInput{}, fmt.Errorf("%w: %w", ErrBadInput, err)
	}
	return in, nil
}

func createBuildCmd() *cobra.Command {
	var (
		roster     []string
		threshold  int
		handNumber string
		strict     bool
	)
	cmd := &cobra.Command{
		Use:   "build [file]",
		Short: "Assemble a hand history from vision batch results",
		Long:  `Reads {"batches": [...], "metadata": {...}} or a bare batch array from file or stdin and prints the assembled hand with its check report.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			in, err := parseBuildInput(data)
			if err != nil {
				return err
			}
			if handNumber != "" {
				in.Metadata.HandNumber = handNumber
			}

			asm := assemble.New(
				assemble.WithLogger(cmdLogger(cmd)),
				assemble.WithRoster(roster, threshold),
			)
			hand := asm.Build(cmd.Context(), in.Batches, in.Metadata)
			out := BuildOutput{Hand: hand, Report: consistency.Evaluate(hand)}
			if err := printJSON(cmd, out); err != nil {
				return err
			}
			if strict && !out.Report.Validation.IsValid {
				return ErrInvalidHand
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&roster, "roster", nil, "known player names to resolve extracted names against")
	cmd.Flags().IntVar(&threshold, "threshold", namematch.DefaultThreshold, "minimum similarity for roster resolution")
	cmd.Flags().StringVar(&handNumber, "hand-number", "", "override metadata.handNumber")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the hand fails validation")
	return cmd
}

func createValidateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a hand history and run the consistency checks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hand model.HandHistory
			if err := decodeInput(cmd, args, &hand); err != nil {
				return err
			}
			report := consistency.Evaluate(hand)
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if strict && !report.Validation.IsValid {
				return ErrInvalidHand
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the hand fails validation")
	return cmd
}
