// Package ocr extracts cards, stacks and pot sizes from raw OCR text of table regions.
package ocr

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/handrecon/internal/domain/cards"
)

// maxTextLength bounds regex work on pathological OCR output.
const maxTextLength = 10000

const playerCardLimit = 2

var (
	cardPattern  = regexp.MustCompile(`(?i)([AKQJT2-9])([shcd])`)
	commaPattern = regexp.MustCompile(`\$?(\d{1,3}(?:,\d{3})+(?:\.\d+)?)`)
	plainPattern = regexp.MustCompile(`\$?(\d+(?:\.\d+)?)([KkMm])?`)
	potComma     = regexp.MustCompile(`(?i)pot[\s:]*\$?\s*(\d{1,3}(?:,\d{3})+(?:\.\d+)?)`)
	potPlain     = regexp.MustCompile(`(?i)pot[\s:]*\$?\s*(\d+(?:\.\d+)?)([KkMm])?`)
)

// PlayerOCR is the parsed content of a player's region.
type PlayerOCR struct {
	Raw   string   `json:"raw"`
	Cards []string `json:"cards"`
	// Stack is nil when no number was read.
	Stack *float64 `json:"stack"`
}

// BoardOCR is the parsed content of the board region.
type BoardOCR struct {
	Raw   string   `json:"raw"`
	Cards []string `json:"cards"`
	// Pot is nil when no pot label was read.
	Pot *float64 `json:"pot"`
}

func clip(text string) string {
	if len(text) > maxTextLength {
		return text[:maxTextLength]
	}
	return text
}

func parseCards(text string, limit int) []string {
	out := []string{}
	for _, m := range cardPattern.FindAllStringSubmatch(cards.ReplaceGlyphs(clip(text)), -1) {
		out = append(out, strings.ToLower(m[1]+m[2]))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// ParsePlayerCards returns at most two lowercase cards, e.g. ["as","ah"].
func ParsePlayerCards(text string) []string {
	return parseCards(text, playerCardLimit)
}

// ParseBoardCards returns every card found; callers truncate per street.
func ParseBoardCards(text string) []string {
	return parseCards(text, 0)
}

func multiplier(suffix string) float64 {
	switch strings.ToUpper(suffix) {
	case "K":
		return 1_000
	case "M":
		return 1_000_000
	}
	return 1
}

func toNumber(digits, suffix string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v * multiplier(suffix), true
}

func parseNumber(text string, grouped, plain *regexp.Regexp) (float64, bool) {
	text = clip(text)
	if m := grouped.FindStringSubmatch(text); m != nil {
		return toNumber(m[1], "")
	}
	if m := plain.FindStringSubmatch(text); m != nil {
		return toNumber(m[1], m[2])
	}
	return 0, false
}

// ParseStackSize reads "$1,500", "1500", "1.5K" or "2M". ok is false when nothing matched.
func ParseStackSize(text string) (float64, bool) {
	return parseNumber(text, commaPattern, plainPattern)
}

// ParsePotSize is ParseStackSize restricted to numbers labelled "pot".
func ParsePotSize(text string) (float64, bool) {
	return parseNumber(text, potComma, potPlain)
}

// ParsePlayerOCR parses a player region.
func ParsePlayerOCR(text string) PlayerOCR {
	r := PlayerOCR{Raw: text, Cards: ParsePlayerCards(text)}
	// card ranks would otherwise be read as the stack
	rest := cardPattern.ReplaceAllString(cards.ReplaceGlyphs(clip(text)), " ")
	if v, ok := ParseStackSize(rest); ok {
		r.Stack = &v
	}
	return r
}

// ParseBoardOCR parses the board region.
func ParseBoardOCR(text string) BoardOCR {
	r := BoardOCR{Raw: text, Cards: ParseBoardCards(text)}
	if v, ok := ParsePotSize(text); ok {
		r.Pot = &v
	}
	return r
}

// Accuracy is the share of non-blank regions that yielded a card or a number.
func Accuracy(regions []string) float64 {
	var total, parsed int
	for _, text := range regions {
		if strings.TrimSpace(text) == "" {
			continue
		}
		total++
		if len(ParseBoardCards(text)) > 0 {
			parsed++
			continue
		}
		if _, ok := ParseStackSize(text); ok {
			parsed++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(parsed) / float64(total)
}
