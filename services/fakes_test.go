package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/ticket-overlays/models"
	"github.com/Dosada05/ticket-overlays/repositories"
	"github.com/Dosada05/ticket-overlays/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func sp(s string) *string { return &s }

// ticketScope builds a full football ticket tuple used across tests.
func ticketScope(ticketID string) models.ScopeTuple {
	return models.ScopeTuple{
		SportType:    "football",
		TournamentID: sp("epl"),
		TeamID:       sp("ars"),
		EventID:      sp("e1"),
		TicketID:     sp(ticketID),
	}
}

func ticketContext(ticketID string) models.TicketContext {
	return models.TicketContext{
		SportType:    "football",
		TournamentID: "epl",
		TeamID:       "ars",
		EventID:      "e1",
		TicketID:     ticketID,
	}
}

// scopeAt cuts a full tuple down to level.
func scopeAt(t *testing.T, full models.ScopeTuple, level models.Level) models.ScopeTuple {
	t.Helper()
	s, ok := full.AtLevel(level)
	require.True(t, ok)
	return s
}

// --- legacy ---

type fakeLegacyRepo struct {
	mu            sync.Mutex
	markups       map[string]models.TicketMarkup
	hospitalities map[string][]models.ResolvedHospitality
	err           error
}

func newFakeLegacyRepo() *fakeLegacyRepo {
	return &fakeLegacyRepo{
		markups:       make(map[string]models.TicketMarkup),
		hospitalities: make(map[string][]models.ResolvedHospitality),
	}
}

func legacyKey(eventID, ticketID string) string { return eventID + "/" + ticketID }

func (f *fakeLegacyRepo) addMarkup(m models.TicketMarkup) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markups[legacyKey(m.EventID, m.TicketID)] = m
}

func (f *fakeLegacyRepo) addHospitality(eventID, ticketID string, item models.ResolvedHospitality) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.Level = models.LevelTicket
	item.Source = models.SourceLegacy
	k := legacyKey(eventID, ticketID)
	f.hospitalities[k] = append(f.hospitalities[k], item)
}

func (f *fakeLegacyRepo) GetTicketMarkup(_ context.Context, eventID, ticketID string) (*models.TicketMarkup, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.markups[legacyKey(eventID, ticketID)]
	if !ok {
		return nil, repositories.ErrTicketMarkupNotFound
	}
	return &m, nil
}

func (f *fakeLegacyRepo) FindTicketMarkupsByTicket(_ context.Context, ticketID string) ([]models.TicketMarkup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TicketMarkup
	for _, m := range f.markups {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeLegacyRepo) ListTicketHospitalities(_ context.Context, eventID, ticketID string) ([]models.ResolvedHospitality, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ResolvedHospitality(nil), f.hospitalities[legacyKey(eventID, ticketID)]...), nil
}

func (f *fakeLegacyRepo) ListEventHospitalities(_ context.Context, eventID string) (map[string][]models.ResolvedHospitality, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]models.ResolvedHospitality)
	prefix := eventID + "/"
	for k, items := range f.hospitalities {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out[k[len(prefix):]] = append([]models.ResolvedHospitality(nil), items...)
		}
	}
	return out, nil
}

func (f *fakeLegacyRepo) Counts(context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, items := range f.hospitalities {
		n += len(items)
	}
	return len(f.markups), n, nil
}

// --- markup rules ---

type fakeRuleRepo struct {
	mu     sync.Mutex
	rules  []models.MarkupRule
	nextID int64
	probes int32
}

func (f *fakeRuleRepo) add(scope models.ScopeTuple, t models.MarkupType, amount decimal.Decimal) models.MarkupRule {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r := models.MarkupRule{
		ID:           f.nextID,
		ScopeTuple:   scope,
		Level:        scope.Level(),
		MarkupType:   t,
		MarkupAmount: amount,
		IsActive:     true,
	}
	f.rules = append(f.rules, r)
	return r
}

func (f *fakeRuleRepo) FindActiveAtLevel(_ context.Context, scope models.ScopeTuple, level models.Level) ([]models.MarkupRule, error) {
	atomic.AddInt32(&f.probes, 1)
	probe, ok := scope.AtLevel(level)
	if !ok {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MarkupRule
	for _, r := range f.rules {
		if r.IsActive && r.Level == level && r.ScopeTuple.Key() == probe.Key() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) GetByID(_ context.Context, id int64) (*models.MarkupRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rules {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, repositories.ErrMarkupRuleNotFound
}

func (f *fakeRuleRepo) ListActive(_ context.Context, sportType string) ([]models.MarkupRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.MarkupRule, 0)
	for _, r := range f.rules {
		if r.IsActive && (sportType == "" || r.SportType == sportType) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) Upsert(_ context.Context, rule *models.MarkupRule) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rules {
		if r.IsActive && r.ScopeTuple.Key() == rule.ScopeTuple.Key() {
			rule.ID = r.ID
			rule.IsActive = true
			f.rules[i] = *rule
			return false, nil
		}
	}
	f.nextID++
	rule.ID = f.nextID
	rule.IsActive = true
	f.rules = append(f.rules, *rule)
	return true, nil
}

func (f *fakeRuleRepo) Deactivate(_ context.Context, id int64, updatedBy *int) (*models.MarkupRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rules {
		if r.ID == id && r.IsActive {
			f.rules[i].IsActive = false
			f.rules[i].UpdatedBy = updatedBy
			out := f.rules[i]
			return &out, nil
		}
	}
	return nil, repositories.ErrMarkupRuleNotFound
}

func (f *fakeRuleRepo) CountActiveByLevel(context.Context) (map[models.Level]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.Level]int)
	for _, r := range f.rules {
		if r.IsActive {
			counts[r.Level]++
		}
	}
	return counts, nil
}

// --- hospitality assignments ---

type fakeAssignment struct {
	models.HospitalityAssignment
	item models.Hospitality
}

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	items       map[int64]models.Hospitality
	assignments []fakeAssignment
	nextID      int64
}

func newFakeAssignmentRepo(items ...models.Hospitality) *fakeAssignmentRepo {
	f := &fakeAssignmentRepo{items: make(map[int64]models.Hospitality)}
	for _, it := range items {
		f.items[it.ID] = it
	}
	return f
}

// assign bypasses the uniqueness check so tests can build broken data.
func (f *fakeAssignmentRepo) assign(scope models.ScopeTuple, hospitalityID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.assignments = append(f.assignments, fakeAssignment{
		HospitalityAssignment: models.HospitalityAssignment{
			ID:            f.nextID,
			ScopeTuple:    scope,
			Level:         scope.Level(),
			HospitalityID: hospitalityID,
			IsActive:      true,
		},
		item: f.items[hospitalityID],
	})
}

func (f *fakeAssignmentRepo) FindActiveAtLevel(_ context.Context, scope models.ScopeTuple, level models.Level) ([]models.ResolvedHospitality, error) {
	probe, ok := scope.AtLevel(level)
	if !ok {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ResolvedHospitality
	for _, a := range f.assignments {
		if !a.IsActive || a.Level != level || a.ScopeTuple.Key() != probe.Key() || !a.item.IsActive {
			continue
		}
		out = append(out, models.ResolvedHospitality{
			HospitalityID: a.item.ID,
			Name:          a.item.Name,
			Description:   a.item.Description,
			Level:         level,
			Source:        models.SourceHospitalityAssignments,
			SortOrder:     a.item.SortOrder,
			IconKey:       a.item.IconKey,
		})
	}
	return out, nil
}

func (f *fakeAssignmentRepo) Upsert(_ context.Context, a *models.HospitalityAssignment) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[a.HospitalityID]
	if !ok {
		return false, repositories.ErrHospitalityNotFound
	}
	for _, existing := range f.assignments {
		if existing.IsActive && existing.HospitalityID == a.HospitalityID && existing.ScopeTuple.Key() == a.ScopeTuple.Key() {
			a.ID = existing.ID
			a.IsActive = true
			return false, nil
		}
	}
	f.nextID++
	a.ID = f.nextID
	a.IsActive = true
	f.assignments = append(f.assignments, fakeAssignment{HospitalityAssignment: *a, item: item})
	return true, nil
}

func (f *fakeAssignmentRepo) Deactivate(_ context.Context, id int64, _ *int) (*models.HospitalityAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.assignments {
		if f.assignments[i].ID == id && f.assignments[i].IsActive {
			f.assignments[i].IsActive = false
			out := f.assignments[i].HospitalityAssignment
			return &out, nil
		}
	}
	return nil, repositories.ErrAssignmentNotFound
}

func (f *fakeAssignmentRepo) CountActiveByLevel(context.Context) (map[models.Level]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.Level]int)
	for _, a := range f.assignments {
		if a.IsActive {
			counts[a.Level]++
		}
	}
	return counts, nil
}

// --- hospitality items ---

type fakeHospitalityRepo struct {
	mu     sync.Mutex
	items  map[int64]*models.Hospitality
	nextID int64
}

func newFakeHospitalityRepo() *fakeHospitalityRepo {
	return &fakeHospitalityRepo{items: make(map[int64]*models.Hospitality)}
}

func (f *fakeHospitalityRepo) Create(_ context.Context, item *models.Hospitality) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item.ID = f.nextID
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	cp := *item
	f.items[item.ID] = &cp
	return nil
}

func (f *fakeHospitalityRepo) GetByID(_ context.Context, id int64) (*models.Hospitality, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrHospitalityNotFound
	}
	cp := *item
	return &cp, nil
}

func (f *fakeHospitalityRepo) ListActive(context.Context) ([]models.Hospitality, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Hospitality, 0, len(f.items))
	for _, item := range f.items {
		if item.IsActive {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeHospitalityRepo) UpdateIconKey(_ context.Context, id int64, iconKey string, updatedBy *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return repositories.ErrHospitalityNotFound
	}
	item.IconKey = &iconKey
	item.UpdatedBy = updatedBy
	return nil
}

// --- currencies and rates ---

type fakeCurrencyRepo struct {
	currencies []models.Currency
	err        error
}

func (f *fakeCurrencyRepo) ListActive(context.Context) ([]models.Currency, error) {
	return f.currencies, f.err
}

func (f *fakeCurrencyRepo) GetDefault(context.Context) (*models.Currency, error) {
	for _, c := range f.currencies {
		if c.IsDefault {
			return &c, nil
		}
	}
	return nil, repositories.ErrCurrencyNotFound
}

type fakeProvider struct {
	mu    sync.Mutex
	rates map[string]decimal.Decimal
	err   error
	calls int32
	// gate, when set, blocks every fetch until closed.
	gate chan struct{}
}

func (p *fakeProvider) FetchRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.gate != nil {
		<-p.gate
	}
	if p.err != nil {
		return decimal.Zero, p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	rate, ok := p.rates[from+":"+to]
	if !ok {
		return decimal.Zero, io.ErrUnexpectedEOF
	}
	return rate, nil
}

func (p *fakeProvider) callCount() int {
	return int(atomic.LoadInt32(&p.calls))
}

// --- object storage and notifications ---

type fakeUploader struct {
	mu       sync.Mutex
	objects  map[string]string
	sizes    map[string]int
	deleted  []string
	failNext bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string]string), sizes: make(map[string]int)}
}

func (u *fakeUploader) Upload(_ context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failNext {
		u.failNext = false
		return nil, io.ErrClosedPipe
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.objects[key] = contentType
	u.sizes[key] = len(data)
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []models.OverlayChange
}

func (n *recordingNotifier) NotifyOverlayChanged(change models.OverlayChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
}
