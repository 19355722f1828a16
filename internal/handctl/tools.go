package handctl

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/namematch"
	"github.com/okian/handrecon/internal/domain/ocr"
	"github.com/okian/handrecon/internal/domain/refine"
)

// MatchOutput is what the match command prints.
type MatchOutput struct {
	Query   string                  `json:"query"`
	Best    *namematch.MatchResult  `json:"best"`
	Matches []namematch.MatchResult `json:"matches"`
}

func createMatchCmd() *cobra.Command {
	var (
		candidates []string
		threshold  int
		topN       int
	)
	cmd := &cobra.Command{
		Use:   "match NAME",
		Short: "Fuzzy-match a player name against candidate names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if threshold < 0 || threshold > 100 {
				return fmt.Errorf("%w: threshold must be within 0..100", ErrBadInput)
			}
			out := MatchOutput{
				Query:   args[0],
				Matches: namematch.FindTopMatches(args[0], candidates, topN, threshold),
			}
			if best, ok := namematch.FindBestMatch(args[0], candidates, threshold); ok {
				out.Best = &best
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringSliceVarP(&candidates, "candidates", "c", nil, "candidate names (comma separated or repeated)")
	cmd.Flags().IntVar(&threshold, "threshold", namematch.DefaultThreshold, "minimum similarity, 0..100")
	cmd.Flags().IntVar(&topN, "top", namematch.DefaultTopN, "number of ranked suggestions")
	return cmd
}

func createOptimizeCmd() *cobra.Command {
	var (
		prompt     string
		iteration  int
		confidence float64
		handID     string
		errorsFile string
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Print the extraction prompt and acceptance threshold for an attempt",
		Long:  `Builds the prompt for attempt --iteration. Prior errors are read as a JSON array of hand errors from --errors (a file, or - for stdin).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if iteration < 1 || iteration > refine.MaxIterations {
				return fmt.Errorf("%w: iteration must be within 1..%d", ErrBadInput, refine.MaxIterations)
			}
			ic := model.IterationContext{
				IterationNumber:    iteration,
				PreviousConfidence: confidence,
				HandID:             handID,
			}
			if errorsFile != "" {
				if err := decodeInput(cmd, []string{errorsFile}, &ic.PreviousErrors); err != nil {
					return err
				}
			}
			return printJSON(cmd, refine.OptimizePrompt(prompt, ic))
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "Extract every action, board card, hole card and the winner from these poker frames.", "base extraction prompt")
	cmd.Flags().IntVar(&iteration, "iteration", 1, "attempt number, 1..3")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "confidence of the previous attempt")
	cmd.Flags().StringVar(&handID, "hand-id", "", "hand being re-analysed")
	cmd.Flags().StringVar(&errorsFile, "errors", "", "JSON file of previous hand errors")
	return cmd
}

// OCROutput is what the ocr command prints.
type OCROutput struct {
	Players  []ocr.PlayerOCR `json:"players"`
	Board    *ocr.BoardOCR   `json:"board,omitempty"`
	Accuracy float64         `json:"accuracy"`
}

func createOCRCmd() *cobra.Command {
	var (
		players []string
		board   string
	)
	cmd := &cobra.Command{
		Use:   "ocr",
		Short: "Parse player and board OCR region text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(players) == 0 && strings.TrimSpace(board) == "" {
				return fmt.Errorf("%w: give --player or --board text", ErrBadInput)
			}
			out := OCROutput{Players: make([]ocr.PlayerOCR, 0, len(players))}
			regions := append([]string(nil), players...)
			for _, text := range players {
				out.Players = append(out.Players, ocr.ParsePlayerOCR(text))
			}
			if strings.TrimSpace(board) != "" {
				b := ocr.ParseBoardOCR(board)
				out.Board = &b
				regions = append(regions, board)
			}
			out.Accuracy = ocr.Accuracy(regions)
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringArrayVarP(&players, "player", "p", nil, "player region text (repeatable)")
	cmd.Flags().StringVarP(&board, "board", "b", "", "board region text")
	return cmd
}
