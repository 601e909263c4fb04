// Package deck reads vocabulary decks from markdown files and
// spreadsheets.
//
// A markdown deck is a sequence of cards:
//
//	F: la manzana
//	B: apple
//	P: noun
//	---
//	F: correr
//	B: to run
//
// A field runs until the next prefix, so fronts and backs may span
// several lines. A new F: line or a --- separator starts a new card.
package deck

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	frontPrefix        = "F:"
	backPrefix         = "B:"
	partOfSpeechPrefix = "P:"
	separator          = "---"
)

// Card is a card read from a deck, before it is given an owner.
type Card struct {
	Front        string
	Back         string
	PartOfSpeech string
	// Line is where the card starts in its source (a row for spreadsheets).
	Line int
}

// Problem is a card that was dropped while parsing.
type Problem struct {
	Line   int
	Reason string
}

func (p Problem) String() string {
	return fmt.Sprintf("line %d: %s", p.Line, p.Reason)
}

type field int

const (
	none field = iota
	front
	back
	partOfSpeech
)

// ParseFile reads a markdown deck from path.
func ParseFile(path string) ([]Card, []Problem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse extracts all complete cards from r. Cards missing a front or a
// back are reported as problems instead.
func Parse(r io.Reader) ([]Card, []Problem, error) {
	scanner := bufio.NewScanner(r)
	var (
		cards    []Card
		problems []Problem
		current  Card
		block    []string
		reading  = none
		started  bool
		lineNo   int
	)

	flushField := func() {
		if reading == none {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch reading {
		case front:
			current.Front = content
		case back:
			current.Back = content
		case partOfSpeech:
			current.PartOfSpeech = content
		}
		block = nil
		reading = none
	}

	finishCard := func() {
		flushField()
		if started {
			switch {
			case current.Front == "":
				problems = append(problems, Problem{Line: current.Line, Reason: "card has no front"})
			case current.Back == "":
				problems = append(problems, Problem{Line: current.Line, Reason: "card has no back"})
			default:
				cards = append(cards, current)
			}
		}
		current = Card{}
		started = false
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if strings.TrimSpace(line) == separator {
			finishCard()
			continue
		}

		next, content, ok := splitPrefix(line)
		if !ok {
			if reading != none {
				block = append(block, line)
			}
			continue
		}

		// A front always begins a new card.
		if next == front && started {
			finishCard()
		}
		flushField()
		if !started {
			started = true
			current.Line = lineNo
		}
		reading = next
		block = append(block, content)
	}

	finishCard()

	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return cards, problems, nil
}

func splitPrefix(line string) (field, string, bool) {
	for _, p := range []struct {
		prefix string
		field  field
	}{
		{frontPrefix, front},
		{backPrefix, back},
		{partOfSpeechPrefix, partOfSpeech},
	} {
		if rest, ok := strings.CutPrefix(line, p.prefix); ok {
			return p.field, strings.TrimPrefix(rest, " "), true
		}
	}
	return none, "", false
}
