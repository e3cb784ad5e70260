package budgetservice

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	budgetdb "github.com/spylab/llm-ctf/app/modules/budget/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
)

type budgetKey struct {
	team     uuid.UUID
	provider sharedtypes.Provider
}

// FakeRepository is an in-memory budgetdb.Repository whose conditional
// consume is atomic, like the SQL it stands in for.
type FakeRepository struct {
	mu   sync.Mutex
	rows map[budgetKey]*budgetdb.ProviderBudget
}

var _ budgetdb.Repository = (*FakeRepository)(nil)

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{rows: map[budgetKey]*budgetdb.ProviderBudget{}}
}

func (f *FakeRepository) CreateBudgets(_ context.Context, _ bun.IDB, rows []budgetdb.ProviderBudget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		if _, ok := f.rows[budgetKey{r.TeamID, r.Provider}]; ok {
			return budgetdb.ErrBudgetExists
		}
	}
	for _, r := range rows {
		row := r
		f.rows[budgetKey{r.TeamID, r.Provider}] = &row
	}
	return nil
}

func (f *FakeRepository) GetTeamBudget(_ context.Context, _ bun.IDB, teamID uuid.UUID) ([]budgetdb.ProviderBudget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []budgetdb.ProviderBudget
	for k, r := range f.rows {
		if k.team == teamID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (f *FakeRepository) GetProviderBudget(_ context.Context, _ bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider) (*budgetdb.ProviderBudget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[budgetKey{teamID, provider}]
	if !ok {
		return nil, budgetdb.ErrBudgetNotFound
	}
	out := *r
	return &out, nil
}

func (f *FakeRepository) IncreaseLimit(_ context.Context, _ bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider, delta float64) (*budgetdb.ProviderBudget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := budgetKey{teamID, provider}
	r, ok := f.rows[k]
	if !ok {
		r = &budgetdb.ProviderBudget{TeamID: teamID, Provider: provider}
		f.rows[k] = r
	}
	r.Limit += delta
	out := *r
	return &out, nil
}

func (f *FakeRepository) ConsumeIfAvailable(_ context.Context, _ bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) (*budgetdb.ProviderBudget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[budgetKey{teamID, provider}]
	if !ok || r.Consumed+amount > r.Limit {
		return nil, budgetdb.ErrNoRowsAffected
	}
	r.Consumed += amount
	out := *r
	return &out, nil
}

func (f *FakeRepository) DrainRemaining(_ context.Context, _ bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider) (*budgetdb.ProviderBudget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[budgetKey{teamID, provider}]
	if !ok {
		return nil, budgetdb.ErrBudgetNotFound
	}
	if r.Consumed < r.Limit {
		r.Consumed = r.Limit
	}
	out := *r
	return &out, nil
}

func (f *FakeRepository) AddConsumed(_ context.Context, _ bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) (*budgetdb.ProviderBudget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[budgetKey{teamID, provider}]
	if !ok {
		return nil, budgetdb.ErrBudgetNotFound
	}
	r.Consumed += amount
	out := *r
	return &out, nil
}
