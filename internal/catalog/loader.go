package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/diagnosis-engine/internal/models"
)

// Loader manages loading and caching of the question catalog
type Loader struct {
	mu     sync.RWMutex
	blocks map[string]*models.Block
}

// NewLoader creates an empty catalog loader
func NewLoader() *Loader {
	return &Loader{
		blocks: make(map[string]*models.Block),
	}
}

// LoadFromDir loads every YAML block file in dir (and one level of subdirectories).
// Files that fail to parse or validate are logged and skipped.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading catalog from directory", "dir", dir)

	files, err := Files(dir)
	if err != nil {
		return err
	}

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load catalog block", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("catalog loaded", "blocks", loaded, "total_files", len(files))
	return nil
}

// Files lists the YAML block files in dir and one level of subdirectories
func Files(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to open catalog dir: %w", err)
	}

	patterns := []string{"*.yaml", "*.yml"}
	var files []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)

		subMatches, err := filepath.Glob(filepath.Join(dir, "*", pattern))
		if err != nil {
			continue
		}
		files = append(files, subMatches...)
	}
	sort.Strings(files)
	return files, nil
}

// LoadFromFile loads a single block from a YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return l.LoadFromBytes(data)
}

// LoadFromBytes parses and registers a single YAML block document
func (l *Loader) LoadFromBytes(data []byte) error {
	var bf blockFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	block := &models.Block{
		ID:          bf.ID,
		Title:       bf.Title,
		Description: bf.Description,
		Order:       bf.Order,
		Questions:   bf.Questions,
	}

	if err := Validate(block); err != nil {
		return err
	}

	l.Add(block)
	slog.Debug("catalog block loaded", "id", block.ID, "questions", len(block.Questions))
	return nil
}

// Validate checks the structural requirements of a block
func Validate(b *models.Block) error {
	if b.ID == "" {
		return fmt.Errorf("block id is required")
	}
	if b.Title == "" {
		return fmt.Errorf("block %s: title is required", b.ID)
	}
	if len(b.Questions) == 0 {
		return fmt.Errorf("block %s: at least one question is required", b.ID)
	}

	seenOptions := make(map[string]string)
	for i, q := range b.Questions {
		if q == nil || q.ID == "" {
			return fmt.Errorf("block %s: question %d has no id", b.ID, i)
		}
		if len(q.Options) == 0 {
			return fmt.Errorf("block %s: question %s has no options", b.ID, q.ID)
		}
		for _, o := range q.Options {
			if o == nil || o.ID == "" {
				return fmt.Errorf("block %s: question %s has an option without id", b.ID, q.ID)
			}
			if o.Priority != "" && !o.Priority.Valid() {
				return fmt.Errorf("block %s: option %s has unknown priority %q", b.ID, o.ID, o.Priority)
			}
			// task identity is derived from the option id
			if other, dup := seenOptions[o.ID]; dup && other != q.ID {
				slog.Warn("duplicate option id in block",
					"block", b.ID, "option", o.ID, "questions", []string{other, q.ID})
			}
			seenOptions[o.ID] = q.ID
		}
	}
	return nil
}

// Add programmatically adds or replaces a block
func (l *Loader) Add(block *models.Block) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocks[block.ID] = block
}

// Replace swaps the whole catalog for blocks
func (l *Loader) Replace(blocks []*models.Block) {
	next := make(map[string]*models.Block, len(blocks))
	for _, b := range blocks {
		next[b.ID] = b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocks = next
}

// Block returns a block by ID, or nil when the catalog has no such block
func (l *Loader) Block(id string) *models.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[id]
}

// Blocks returns all blocks in catalog order
func (l *Loader) Blocks() []*models.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Block, 0, len(l.blocks))
	for _, b := range l.blocks {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// --- YAML file structs ---

// blockFile represents the YAML structure of a block file
type blockFile struct {
	ID          string             `yaml:"id"`
	Title       string             `yaml:"title"`
	Description string             `yaml:"description"`
	Order       int                `yaml:"order"`
	Questions   []*models.Question `yaml:"questions"`
}
