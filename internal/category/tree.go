package category

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/learnstack/coursewallet/internal/models"
	"gorm.io/gorm"
)

// ErrCategoryNotFound indicates a category ID does not resolve in the tree.
var ErrCategoryNotFound = errors.New("category not found")

// Tree resolves ancestor chains from the categories table. Chains are read
// often and change rarely, so resolved chains are cached per process.
type Tree struct {
	db *gorm.DB

	mu     sync.RWMutex
	chains map[uint64][]uint64
}

// NewTree constructs a Tree over the given connection.
func NewTree(db *gorm.DB) *Tree {
	return &Tree{db: db, chains: make(map[uint64][]uint64)}
}

// Chain returns the ancestor chain for a category, ordered root first and
// ending with the category itself. ID 0 resolves to an empty chain: the main
// balance has no category.
func (t *Tree) Chain(ctx context.Context, id uint64) ([]uint64, error) {
	if id == 0 {
		return nil, nil
	}

	t.mu.RLock()
	cached, ok := t.chains[id]
	t.mu.RUnlock()
	if ok {
		out := make([]uint64, len(cached))
		copy(out, cached)
		return out, nil
	}

	var row models.Category
	if errFind := t.db.WithContext(ctx).
		Select("id", "path").
		First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrCategoryNotFound, id)
		}
		return nil, errFind
	}

	chain, errParse := parsePath(row.Path)
	if errParse != nil {
		return nil, errParse
	}
	if len(chain) == 0 || chain[len(chain)-1] != id {
		return nil, fmt.Errorf("category: path %q does not end at id %d", row.Path, id)
	}

	t.mu.Lock()
	t.chains[id] = chain
	t.mu.Unlock()

	out := make([]uint64, len(chain))
	copy(out, chain)
	return out, nil
}

// Contains reports whether target falls within the subtree chain of ancestor,
// i.e. ancestor is on target's root-to-self chain.
func (t *Tree) Contains(ctx context.Context, ancestor, target uint64) (bool, error) {
	if ancestor == 0 {
		return true, nil
	}
	chain, err := t.Chain(ctx, target)
	if err != nil {
		return false, err
	}
	for _, id := range chain {
		if id == ancestor {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate drops cached chains after administrative tree edits.
func (t *Tree) Invalidate() {
	t.mu.Lock()
	t.chains = make(map[uint64][]uint64)
	t.mu.Unlock()
}

// parsePath splits a materialized path like "/1/4/9" into IDs.
func parsePath(path string) ([]uint64, error) {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("category: empty path")
	}
	parts := strings.Split(trimmed, "/")
	out := make([]uint64, 0, len(parts))
	for _, part := range parts {
		id, errParse := strconv.ParseUint(part, 10, 64)
		if errParse != nil || id == 0 {
			return nil, fmt.Errorf("category: bad path segment %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}
