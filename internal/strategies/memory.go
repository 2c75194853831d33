package strategies

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileMemory is a JSON-file-backed associative memory. Retrieval is plain
// term overlap, no embeddings; enough for the gateway's enrichment hook.
type FileMemory struct {
	path string
	mu   sync.Mutex
}

// memoryFile is the on-disk format.
type memoryFile struct {
	Nodes    []*Node        `json:"nodes"`
	Outcomes map[string]int `json:"outcomes,omitempty"`
}

// NewFileMemory creates a memory store at the given path. The file is
// created lazily on first ingest.
func NewFileMemory(path string) *FileMemory {
	return &FileMemory{path: path}
}

var _ Associative = (*FileMemory)(nil)

func (m *FileMemory) load() (*memoryFile, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &memoryFile{Outcomes: make(map[string]int)}, nil
		}
		return nil, fmt.Errorf("read memory file: %w", err)
	}

	var mf memoryFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("unmarshal memory file: %w", err)
	}
	if mf.Outcomes == nil {
		mf.Outcomes = make(map[string]int)
	}
	return &mf, nil
}

// save writes atomically: temp file then rename.
func (m *FileMemory) save(mf *memoryFile) error {
	data, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal memory file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp memory file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp memory file: %w", err)
	}
	return nil
}

// Sieve scores stored nodes against the query by term overlap and packs the
// best matches under the token budget (4 chars ≈ 1 token). Matched nodes get
// their access count bumped.
func (m *FileMemory) Sieve(_ context.Context, query string, tokenBudget int) (*SieveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.load()
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))
	type match struct {
		node  *Node
		score float64
	}
	var matches []match
	for _, node := range mf.Nodes {
		s := overlapScore(terms, node)
		if s <= 0 {
			continue
		}
		matches = append(matches, match{node: node, score: s})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	var lines []string
	used := 0
	included := 0
	for _, mt := range matches {
		cost := (len(mt.node.Content) + 3) / 4
		if used+cost > tokenBudget {
			continue
		}
		used += cost
		included++
		lines = append(lines, "- "+mt.node.Content)
		mt.node.AccessCount++
	}

	if included > 0 {
		if err := m.save(mf); err != nil {
			return nil, err
		}
	}

	return &SieveResult{
		Context:       strings.Join(lines, "\n"),
		NodesIncluded: included,
		TokensUsed:    used,
	}, nil
}

func overlapScore(terms []string, node *Node) float64 {
	content := strings.ToLower(node.Content)
	score := 0.0
	for _, term := range terms {
		if len(term) < 3 {
			continue
		}
		if strings.Contains(content, term) {
			score += 1.0
		}
		for _, tag := range node.Tags {
			if strings.EqualFold(tag, term) {
				score += 0.5
			}
		}
	}
	if score > 0 {
		// Frequently retrieved nodes float up slightly.
		score += float64(node.AccessCount) * 0.05
	}
	return score
}

// Ingest stores new content and returns the created node.
func (m *FileMemory) Ingest(_ context.Context, content, category, subcategory, source string, tags []string) (*Node, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.load()
	if err != nil {
		return nil, err
	}

	node := &Node{
		ID:          uuid.New().String(),
		Content:     content,
		Category:    category,
		Subcategory: subcategory,
		Source:      source,
		Tags:        tags,
		CreatedAt:   float64(time.Now().UnixNano()) / 1e9,
	}
	mf.Nodes = append(mf.Nodes, node)

	if err := m.save(mf); err != nil {
		return nil, err
	}
	return node, nil
}

// RecordTaskOutcome tallies task outcomes in the store.
func (m *FileMemory) RecordTaskOutcome(_ context.Context, outcome string) error {
	switch outcome {
	case OutcomeSuccess, OutcomeFailure, OutcomePartial:
	default:
		return fmt.Errorf("invalid outcome %q", outcome)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.load()
	if err != nil {
		return err
	}
	mf.Outcomes[outcome]++
	return m.save(mf)
}
