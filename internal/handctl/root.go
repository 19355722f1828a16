// Package handctl implements the handctl command line: offline hand
// assembly, validation, name matching, prompt and OCR tooling, and job
// submission against a running server.
package handctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/handrecon/pkg/logger"
)

// NewRootCommand assembles the handctl command tree.
func NewRootCommand() *cobra.Command {
	var level string
	root := &cobra.Command{
		Use:           "handctl",
		Short:         "Poker hand reconstruction tooling",
		Long:          `Build and check hand histories from vision batch results, resolve player names, and submit hands to a handrecon server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logger.SetLevelString(level)
		},
	}
	root.PersistentFlags().StringVar(&level, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(createBuildCmd())
	root.AddCommand(createValidateCmd())
	root.AddCommand(createMatchCmd())
	root.AddCommand(createOptimizeCmd())
	root.AddCommand(createOCRCmd())
	root.AddCommand(createSubmitCmd())
	return root
}

// cmdLogger writes structured logs to the command's stderr.
func cmdLogger(cmd *cobra.Command) logger.Logger {
	return logger.New(cmd.ErrOrStderr()).Named("handctl")
}

// readInput returns the contents of args[0], or stdin when no file or "-"
// is given.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrBadInput)
	}
	return data, nil
}

func decodeInput(cmd *cobra.Command, args []string, v any) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadInput, err)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
