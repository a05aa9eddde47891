package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/garyjia/asset-registry/internal/domain/apperr"
	"github.com/garyjia/asset-registry/internal/domain/entity"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

type mockTxManager struct {
	mu                  sync.Mutex
	calls               int
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

func (m *mockTxManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockAssetRepo is an in-memory AssetRepository with compare-and-set semantics
type mockAssetRepo struct {
	mu      sync.Mutex
	records map[string]*entity.AssetRecord
	order   []string
	listErr error
}

func newMockAssetRepo(records ...*entity.AssetRecord) *mockAssetRepo {
	r := &mockAssetRepo{records: make(map[string]*entity.AssetRecord)}
	for _, rec := range records {
		_ = r.Create(context.Background(), rec)
	}
	return r
}

func (m *mockAssetRepo) Create(ctx context.Context, asset *entity.AssetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[asset.ID] = asset.Clone()
	m.order = append(m.order, asset.ID)
	return nil
}

func (m *mockAssetRepo) GetByID(ctx context.Context, id string) (*entity.AssetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("asset %s not found", id)
	}
	return rec.Clone(), nil
}

func (m *mockAssetRepo) CompareAndSet(ctx context.Context, id string, expectedStatus string, next *entity.AssetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return apperr.NotFound("asset %s not found", id)
	}
	if rec.Status != expectedStatus || rec.Version != next.Version-1 {
		return apperr.Conflict(errors.New("stale write"))
	}
	m.records[id] = next.Clone()
	return nil
}

func (m *mockAssetRepo) List(ctx context.Context, filter entity.AssetFilter) ([]*entity.AssetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*entity.AssetRecord
	for _, id := range m.order {
		rec := m.records[id]
		if matches(rec, filter) {
			out = append(out, rec.Clone())
		}
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockAssetRepo) Summary(ctx context.Context, filter entity.AssetFilter) (*entity.AssetSummary, error) {
	all, err := m.List(ctx, entity.AssetFilter{
		Status: filter.Status, MinistryID: filter.MinistryID, AgencyID: filter.AgencyID,
		UploadedBy: filter.UploadedBy, Category: filter.Category,
	})
	if err != nil {
		return nil, err
	}
	s := &entity.AssetSummary{ByStatus: map[string]int{}, ByMinistry: map[string]int{}}
	for _, rec := range all {
		s.Total++
		s.ByStatus[rec.Status]++
		s.ByMinistry[rec.MinistryID]++
		if rec.Status == entity.StatusApproved {
			s.ApprovedCostCents += rec.CostCents
		}
	}
	return s, nil
}

func matches(rec *entity.AssetRecord, f entity.AssetFilter) bool {
	return (f.Status == "" || rec.Status == f.Status) &&
		(f.MinistryID == "" || rec.MinistryID == f.MinistryID) &&
		(f.AgencyID == "" || rec.AgencyID == f.AgencyID) &&
		(f.UploadedBy == "" || rec.UploadedBy == f.UploadedBy) &&
		(f.Category == "" || rec.Category == f.Category)
}

type mockAuditRepo struct {
	mu        sync.Mutex
	events    []*entity.AuditEvent
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, evt *entity.AuditEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *evt
	m.events = append(m.events, &c)
	return nil
}

func (m *mockAuditRepo) ListByResource(ctx context.Context, resourceID string, limit int) ([]*entity.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.AuditEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].ResourceID == resourceID {
			out = append(out, m.events[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockMinistryRepo struct {
	ministries map[string]*entity.Ministry
	upsertErr  error
}

func (m *mockMinistryRepo) Get(ctx context.Context, id string) (*entity.Ministry, error) {
	return m.ministries[id], nil
}

func (m *mockMinistryRepo) Upsert(ctx context.Context, ministry *entity.Ministry) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	c := *ministry
	m.ministries[ministry.ID] = &c
	return nil
}

func (m *mockMinistryRepo) List(ctx context.Context) ([]*entity.Ministry, error) {
	out := make([]*entity.Ministry, 0, len(m.ministries))
	for _, v := range m.ministries {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockCatalog struct {
	categories map[string]entity.Category
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{categories: map[string]entity.Category{
		"vehicle": {
			Name: "vehicle",
			Fields: []entity.FieldSpec{
				{Name: "plate_number", Type: entity.FieldTypeString, Required: true},
				{Name: "year", Type: entity.FieldTypeInteger},
			},
		},
		"furniture": {Name: "furniture"},
	}}
}

func (m *mockCatalog) Get(name string) (*entity.Category, bool) {
	c, ok := m.categories[name]
	if !ok {
		return nil, false
	}
	return &c, true
}

func (m *mockCatalog) List() []entity.Category {
	out := make([]entity.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out
}
