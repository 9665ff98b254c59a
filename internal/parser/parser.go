package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/knol"
)

const (
	separator       = "---"
	kindDirective   = "# kind:"
	defaultCategory = "algemeen"
)

type state int

const (
	seeking state = iota
	readingID
	readingPrompt
	readingAnswer
	readingCategory
	readingGroup
	readingNote
)

var prefixes = []struct {
	prefix string
	state  state
}{
	{"ID:", readingID},
	{"Q:", readingPrompt},
	{"A:", readingAnswer},
	{"C:", readingCategory},
	{"G:", readingGroup},
	{"N:", readingNote},
}

// ParseFile reads a deck from path.
func ParseFile(path string, kind domain.Kind) ([]domain.Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file, kind)
}

// Parse reads a deck. Items take kind until a "# kind:" line changes it.
// Entries without an ID: line get a content hash id.
func Parse(r io.Reader, kind domain.Kind) ([]domain.Item, error) {
	scanner := bufio.NewScanner(r)
	var items []domain.Item
	var current domain.Item
	var block []string
	currentState := seeking
	lineNo := 0

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch currentState {
		case readingID:
			current.ID = content
		case readingPrompt:
			current.Prompt = content
		case readingAnswer:
			current.Answer = content
		case readingCategory:
			current.Category = content
		case readingGroup:
			current.Group = content
		case readingNote:
			current.Note = content
		}
		block = nil
	}

	finishItem := func() {
		flushBlock()
		if current.Prompt != "" {
			current.Kind = kind
			if current.Category == "" {
				current.Category = defaultCategory
			}
			if current.ID == "" {
				current.ID = knol.ID(current)
			}
			items = append(items, current)
		}
		current = domain.Item{}
		currentState = seeking
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if line == separator {
			finishItem()
			continue
		}

		if strings.HasPrefix(strings.ToLower(line), kindDirective) {
			finishItem()
			k, err := domain.ParseKind(strings.TrimSpace(line[len(kindDirective):]))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			kind = k
			continue
		}

		matched := false
		for _, p := range prefixes {
			if !strings.HasPrefix(line, p.prefix) {
				continue
			}
			matched = true
			flushBlock()
			// A new prompt always starts a new item.
			if p.state == readingPrompt && current.Prompt != "" {
				finishItem()
			}
			currentState = p.state
			block = append(block, strings.TrimPrefix(line[len(p.prefix):], " "))
			break
		}

		if !matched && currentState != seeking {
			switch currentState {
			case readingPrompt, readingAnswer, readingNote:
				block = append(block, line)
			}
		}
	}

	finishItem()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
