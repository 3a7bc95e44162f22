package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dekarrin/skein/server/dao"
	"github.com/google/uuid"
)

func NewGrammarsRepository() *InMemoryGrammarsRepository {
	return &InMemoryGrammarsRepository{
		grammars: make(map[uuid.UUID]dao.Grammar),
	}
}

type InMemoryGrammarsRepository struct {
	mtx      sync.RWMutex
	grammars map[uuid.UUID]dao.Grammar
}

func (imgr *InMemoryGrammarsRepository) Close() error {
	return nil
}

func (imgr *InMemoryGrammarsRepository) Create(ctx context.Context, g dao.Grammar) (dao.Grammar, error) {
	imgr.mtx.Lock()
	defer imgr.mtx.Unlock()

	newUUID, err := uuid.NewRandom()
	if err != nil {
		return dao.Grammar{}, fmt.Errorf("could not generate ID: %w", err)
	}

	now := time.Now()
	g.ID = newUUID
	g.Created = now
	g.Modified = now
	g.Data = copyBytes(g.Data)

	imgr.grammars[g.ID] = g

	return g, nil
}

func (imgr *InMemoryGrammarsRepository) GetByID(ctx context.Context, id uuid.UUID) (dao.Grammar, error) {
	imgr.mtx.RLock()
	defer imgr.mtx.RUnlock()

	g, ok := imgr.grammars[id]
	if !ok {
		return dao.Grammar{}, dao.ErrNotFound
	}

	g.Data = copyBytes(g.Data)
	return g, nil
}

func (imgr *InMemoryGrammarsRepository) GetAllByOwner(ctx context.Context, owner uuid.UUID) ([]dao.Grammar, error) {
	imgr.mtx.RLock()
	defer imgr.mtx.RUnlock()

	var all []dao.Grammar
	for _, g := range imgr.grammars {
		if g.Owner == owner {
			g.Data = copyBytes(g.Data)
			all = append(all, g)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Name == all[j].Name {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].Name < all[j].Name
	})

	return all, nil
}

func (imgr *InMemoryGrammarsRepository) Update(ctx context.Context, id uuid.UUID, g dao.Grammar) (dao.Grammar, error) {
	imgr.mtx.Lock()
	defer imgr.mtx.Unlock()

	existing, ok := imgr.grammars[id]
	if !ok {
		return dao.Grammar{}, dao.ErrNotFound
	}

	existing.Name = g.Name
	existing.Data = copyBytes(g.Data)
	existing.Modified = time.Now()
	imgr.grammars[id] = existing

	return existing, nil
}

func (imgr *InMemoryGrammarsRepository) Delete(ctx context.Context, id uuid.UUID) (dao.Grammar, error) {
	imgr.mtx.Lock()
	defer imgr.mtx.Unlock()

	g, ok := imgr.grammars[id]
	if !ok {
		return dao.Grammar{}, dao.ErrNotFound
	}

	delete(imgr.grammars, id)

	return g, nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
