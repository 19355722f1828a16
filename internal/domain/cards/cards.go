// Package cards parses card notation and bridges it to the hand evaluator.
package cards

import (
	"fmt"
	"strings"

	poker "github.com/paulhankin/poker"
)

const (
	ranks = "23456789TJQKA"
	suits = "cdhs"
)

var glyphs = map[string]string{
	"♠": "s", "♤": "s",
	"♥": "h", "♡": "h",
	"♦": "d", "♢": "d",
	"♣": "c", "♧": "c",
}

// Card is a parsed playing card.
type Card struct {
	Rank byte // one of 23456789TJQKA
	Suit byte // one of cdhs
}

// String renders the canonical form, e.g. "As".
func (c Card) String() string {
	return string([]byte{c.Rank, c.Suit})
}

// ReplaceGlyphs swaps unicode suit symbols for their letters.
func ReplaceGlyphs(s string) string {
	for g, l := range glyphs {
		s = strings.ReplaceAll(s, g, l)
	}
	return s
}

// Parse reads notations like "As", "ah", "10d" or "K♥".
func Parse(s string) (Card, error) {
	v := strings.TrimSpace(ReplaceGlyphs(s))
	if strings.HasPrefix(v, "10") {
		v = "T" + v[2:]
	}
	if len(v) != 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	r := strings.ToUpper(v[:1])[0]
	st := strings.ToLower(v[1:])[0]
	if strings.IndexByte(ranks, r) < 0 || strings.IndexByte(suits, st) < 0 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	return Card{Rank: r, Suit: st}, nil
}

// Normalize returns the canonical form of s.
func Normalize(s string) (string, error) {
	c, err := Parse(s)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// ToPoker converts to the evaluator's card type.
func ToPoker(c Card) (poker.Card, error) {
	var s poker.Suit
	switch c.Suit {
	case 'c':
		s = poker.Club
	case 'd':
		s = poker.Diamond
	case 'h':
		s = poker.Heart
	default:
		s = poker.Spade
	}
	// evaluator ranks run 1..13 with the ace low
	r := poker.Rank(strings.IndexByte(ranks, c.Rank) + 2)
	if c.Rank == 'A' {
		r = poker.Rank(1)
	}
	return poker.MakeCard(s, r)
}

// Describe names the best hand made by 5 or 7 cards, e.g. "pair of nines".
func Describe(notation []string) (string, error) {
	if n := len(notation); n != 5 && n != 7 {
		return "", fmt.Errorf("%w: need 5 or 7 cards, got %d", ErrNotDescribable, n)
	}
	pcs := make([]poker.Card, 0, len(notation))
	for _, s := range notation {
		c, err := Parse(s)
		if err != nil {
			return "", err
		}
		pc, err := ToPoker(c)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidCard, err)
		}
		pcs = append(pcs, pc)
	}
	d, err := poker.Describe(pcs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotDescribable, err)
	}
	return d, nil
}
