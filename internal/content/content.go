// Package content holds the compiled-in decks and exercises and merges them
// with decks synced from external sources.
package content

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/parser"
)

//go:embed decks/*.md
var deckFiles embed.FS

//go:embed exercises.yaml
var exerciseFile []byte

// Library is the drillable content grouped by kind.
type Library struct {
	items     map[domain.Kind][]domain.Item
	index     map[string]int
	Exercises []domain.Exercise
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{
		items: make(map[domain.Kind][]domain.Item),
		index: make(map[string]int),
	}
}

// Embedded parses the compiled-in decks and exercises.
func Embedded() (*Library, error) {
	lib := NewLibrary()
	err := fs.WalkDir(deckFiles, "decks", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		f, err := deckFiles.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		kind, err := domain.ParseKind(strings.TrimSuffix(path.Base(p), ".md"))
		if err != nil {
			return fmt.Errorf("deck %s: %w", p, err)
		}
		items, err := parser.Parse(f, kind)
		if err != nil {
			return fmt.Errorf("parsing deck %s: %w", p, err)
		}
		lib.Add(items...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	exercises, err := parseExercises(bytesProvider(exerciseFile))
	if err != nil {
		return nil, fmt.Errorf("embedded exercises: %w", err)
	}
	lib.Exercises = exercises
	return lib, nil
}

// Add inserts items, replacing any earlier item with the same kind and id.
func (l *Library) Add(items ...domain.Item) {
	for _, item := range items {
		key := string(item.Kind) + "\x00" + item.ID
		if pos, ok := l.index[key]; ok {
			l.items[item.Kind][pos] = item
			continue
		}
		l.index[key] = len(l.items[item.Kind])
		l.items[item.Kind] = append(l.items[item.Kind], item)
	}
}

// Items returns the items of kind in insertion order.
func (l *Library) Items(kind domain.Kind) []domain.Item {
	return append([]domain.Item(nil), l.items[kind]...)
}

// Categories returns the distinct categories of kind in first-seen order.
func (l *Library) Categories(kind domain.Kind) []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range l.items[kind] {
		if !seen[item.Category] {
			seen[item.Category] = true
			out = append(out, item.Category)
		}
	}
	return out
}

// KindForFile picks the default kind for a deck file from its name:
// "perfect-tense.md" holds perfect-tense items. Anything else defaults to
// vocabulary; a "# kind:" directive inside the file still wins.
func KindForFile(name string) domain.Kind {
	stem := strings.TrimSuffix(strings.ToLower(filepath.Base(name)), ".md")
	if kind, err := domain.ParseKind(stem); err == nil {
		return kind
	}
	return domain.KindVocabulary
}

// IsDeck reports whether name looks like a deck file.
func IsDeck(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md")
}

// LoadDir parses every deck under dir into the library and returns how many
// items were added. Parse errors are collected; the walk continues past them.
func (l *Library) LoadDir(dir string) (int, []error) {
	var added int
	var errs []error
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsDeck(d.Name()) {
			return nil
		}
		items, parseErr := parser.ParseFile(p, KindForFile(d.Name()))
		if parseErr != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", p, parseErr))
		}
		l.Add(items...)
		added += len(items)
		return nil
	})
	if walkErr != nil {
		errs = append(errs, fmt.Errorf("walking %s: %w", dir, walkErr))
	}
	return added, errs
}

// ExerciseItems returns every exercise expanded into single questions.
func (l *Library) ExerciseItems() []domain.ExerciseItem {
	return domain.ExpandAll(l.Exercises)
}

// LoadExercisesFile reads an exercises YAML file from disk.
func LoadExercisesFile(p string) ([]domain.Exercise, error) {
	return parseExercises(file.Provider(p))
}

func parseExercises(p koanf.Provider) ([]domain.Exercise, error) {
	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load exercises: %w", err)
	}
	var exercises []domain.Exercise
	if err := k.Unmarshal("exercises", &exercises); err != nil {
		return nil, fmt.Errorf("failed to decode exercises: %w", err)
	}
	for i, e := range exercises {
		if e.ID == "" || e.Type == "" {
			return nil, fmt.Errorf("exercise %d: id and type are required", i)
		}
	}
	return exercises, nil
}

// bytesProvider feeds an in-memory document to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, fmt.Errorf("bytesProvider does not support Read")
}
