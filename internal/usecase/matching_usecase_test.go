package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"match-engine/internal/analytics"
	"match-engine/internal/domain/matching"
	"match-engine/internal/guard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (m *memCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	m.sets++
	return nil
}

func (m *memCache) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	n := 0
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

type brokenScorer struct{}

func (brokenScorer) Score(context.Context, matching.Candidate, matching.Job) (matching.Result, error) {
	return matching.Result{}, errors.New("embedding backend down")
}

// gatedScorer counts calls and blocks until release is closed.
type gatedScorer struct {
	calls   *atomic.Int32
	release chan struct{}
}

func (g gatedScorer) Score(ctx context.Context, _ matching.Candidate, _ matching.Job) (matching.Result, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return matching.Result{}, ctx.Err()
	}
	return matching.Result{Aggregate: 70, Quality: matching.QualityGood, Strategy: matching.StrategyAdvancedProfile}, nil
}

// newGatedUsecase scores advanced-profile with a gatedScorer and no result cache.
func newGatedUsecase(t *testing.T) (*Matching, gatedScorer, *analytics.MemoryStore) {
	t.Helper()
	catalog, err := matching.NewCatalog(matching.DefaultEngine(), matching.DefaultProfiles(), nil)
	require.NoError(t, err)
	gs := gatedScorer{calls: &atomic.Int32{}, release: make(chan struct{})}
	catalog.Register(matching.StrategyAdvancedProfile, gs)

	g, err := guard.New(guard.Config{Policy: guard.DefaultPolicy(), Chain: guard.DefaultChain()})
	require.NoError(t, err)
	store := analytics.NewMemoryStore()

	uc, err := NewMatchingUsecase(MatchingConfig{
		Catalog:  catalog,
		Guard:    g,
		Recorder: analytics.NewRecorder(analytics.RecorderConfig{Store: store}),
	})
	require.NoError(t, err)
	return uc, gs, store
}

type fixture struct {
	uc       *Matching
	cache    *memCache
	store    *analytics.MemoryStore
	catalog  *matching.Catalog
	recorder *analytics.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	catalog, err := matching.NewCatalog(matching.DefaultEngine(), matching.DefaultProfiles(), nil)
	require.NoError(t, err)
	g, err := guard.New(guard.Config{Policy: guard.DefaultPolicy(), Chain: guard.DefaultChain()})
	require.NoError(t, err)

	store := analytics.NewMemoryStore()
	rec := analytics.NewRecorder(analytics.RecorderConfig{Store: store})
	cache := newMemCache()

	uc, err := NewMatchingUsecase(MatchingConfig{
		Catalog:     catalog,
		Guard:       g,
		Recorder:    rec,
		Cache:       cache,
		CacheTTL:    time.Minute,
		Parallelism: 4,
	})
	require.NoError(t, err)
	return fixture{uc: uc, cache: cache, store: store, catalog: catalog, recorder: rec}
}

func fp(v float64) *float64 { return &v }

func goDeveloper() (CVData, QuestionnaireData) {
	mobile := true
	cv := CVData{
		Name:            "Camille",
		Skills:          []string{"Go", "PostgreSQL", "Docker", "Kubernetes"},
		YearsExperience: fp(5),
		Languages:       []string{"français", "anglais"},
		Tools:           []string{"git"},
	}
	q := QuestionnaireData{
		Address:       "12 rue de Rivoli, 75001 Paris",
		DesiredSalary: fp(50000),
		Mobility:      &mobile,
		TransportMode: "transport_commun",
		Objectives:    map[string]bool{"evolution_rapide": true},
	}
	return cv, q
}

func jobs() []JobData {
	return []JobData{
		{
			ID:             "weak",
			Title:          "Chef de cuisine",
			RequiredSkills: []string{"cuisine", "hygiène"},
			Location:       "Marseille",
			SalaryMin:      25000,
			SalaryMax:      28000,
			RequiredYears:  10,
		},
		{
			ID:                "strong",
			Title:             "Backend Go",
			RequiredSkills:    []string{"Go", "PostgreSQL", "Docker"},
			Location:          "Paris",
			SalaryMin:         48000,
			SalaryMax:         55000,
			RequiredYears:     4,
			GrowthPerspective: true,
			RequiredLanguages: []string{"anglais"},
			RequiredTools:     []string{"git"},
		},
		{
			ID:             "medium",
			Title:          "Développeur Python",
			RequiredSkills: []string{"Python", "Django", "PostgreSQL"},
			Location:       "Paris",
			SalaryMin:      45000,
			SalaryMax:      52000,
			RequiredYears:  3,
		},
	}
}

func TestMatch_RanksDescendingAndRecords(t *testing.T) {
	f := newFixture(t)
	cv, q := goDeveloper()

	resp, err := f.uc.Match(context.Background(), MatchRequest{CandidateID: "cand-1", CV: cv, Questionnaire: q, Jobs: jobs()})
	require.NoError(t, err)

	assert.Equal(t, analytics.ModeForward, resp.Mode)
	assert.Equal(t, matching.StrategyAuto, resp.Requested)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "strong", resp.Items[0].JobID)
	assert.Equal(t, "weak", resp.Items[2].JobID)
	for i := 1; i < len(resp.Items); i++ {
		assert.GreaterOrEqual(t, resp.Items[i-1].Result.Aggregate, resp.Items[i].Result.Aggregate)
	}
	for _, it := range resp.Items {
		assert.Equal(t, "cand-1", it.CandidateID)
		assert.NotEmpty(t, it.SelectionReason)
		assert.Equal(t, it.Selected, it.Used)
		assert.False(t, it.Cached)
	}

	records, err := f.store.ListSince(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "cand-1", r.SubjectID)
		assert.True(t, r.Success)
	}
}

func TestMatch_Limit(t *testing.T) {
	f := newFixture(t)
	cv, q := goDeveloper()

	resp, err := f.uc.Match(context.Background(), MatchRequest{CV: cv, Questionnaire: q, Jobs: jobs(), Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "strong", resp.Items[0].JobID)
}

func TestMatch_Validation(t *testing.T) {
	f := newFixture(t)
	cv, q := goDeveloper()

	tests := []struct {
		name  string
		req   MatchRequest
		field string
	}{
		{name: "no skills", req: MatchRequest{CV: CVData{}, Jobs: jobs()}, field: "cv_data.competences"},
		{name: "no jobs", req: MatchRequest{CV: cv, Questionnaire: q}, field: "job_data"},
		{name: "job without id", req: MatchRequest{CV: cv, Jobs: []JobData{{Title: "x"}}}, field: "job_data[0].id"},
		{name: "unknown algorithm", req: MatchRequest{CV: cv, Jobs: jobs(), Algorithm: "quantum"}, field: "algorithm"},
		{name: "limit too high", req: MatchRequest{CV: cv, Jobs: jobs(), Limit: 101}, field: "limit"},
		{name: "inverted salary", req: MatchRequest{CV: cv, Jobs: []JobData{{ID: "j", SalaryMin: 50000, SalaryMax: 40000}}}, field: "job_data[0].salaire_max"},
		{name: "negative experience", req: MatchRequest{CV: CVData{Skills: []string{"go"}, YearsExperience: fp(-1)}, Jobs: jobs()}, field: "cv_data.annees_experience"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Match(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestReverseMatch(t *testing.T) {
	f := newFixture(t)
	cv, q := goDeveloper()
	junior := CVData{Skills: []string{"HTML", "CSS"}, YearsExperience: fp(0)}

	resp, err := f.uc.ReverseMatch(context.Background(), ReverseMatchRequest{
		Job: jobs()[1],
		Candidates: []CandidateData{
			{ID: "junior", CV: junior},
			{ID: "senior", CV: cv, Questionnaire: q},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, analytics.ModeReverse, resp.Mode)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "senior", resp.Items[0].CandidateID)
	assert.Equal(t, "strong", resp.Items[0].JobID)

	records, err := f.store.ListSince(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "strong", records[0].SubjectID)

	_, err = f.uc.ReverseMatch(context.Background(), ReverseMatchRequest{Job: jobs()[1]})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "candidates_data")
}

func TestMatch_CachesSelectedStrategyResults(t *testing.T) {
	f := newFixture(t)
	cv, q := goDeveloper()
	req := MatchRequest{CandidateID: "c", CV: cv, Questionnaire: q, Jobs: jobs()[1:2]}

	first, err := f.uc.Match(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.False(t, first.Items[0].Cached)
	assert.Equal(t, 1, f.cache.sets)

	second, err := f.uc.Match(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.True(t, second.Items[0].Cached)
	assert.Equal(t, first.Items[0].Result.Aggregate, second.Items[0].Result.Aggregate)
	assert.Equal(t, first.Items[0].Result.Criteria, second.Items[0].Result.Criteria)

	n, err := f.uc.InvalidateCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMatch_FallbackIsNotCached(t *testing.T) {
	f := newFixture(t)
	f.catalog.Register(matching.StrategySemantic, brokenScorer{})
	cv, q := goDeveloper()
	req := MatchRequest{CV: cv, Questionnaire: q, Jobs: jobs()[1:2], Algorithm: "semantic"}

	resp, err := f.uc.Match(context.Background(), req)
	require.NoError(t, err)
	item := resp.Items[0]
	assert.Equal(t, matching.StrategySemantic, item.Selected)
	assert.Equal(t, matching.StrategyAdvancedProfile, item.Used)
	require.Len(t, item.Attempts, 2)
	assert.Equal(t, guard.AttemptFailed, item.Attempts[0].Status)
	assert.Zero(t, f.cache.sets)

	summary, err := f.uc.Summary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Fallbacks)
	assert.Zero(t, summary.FailureRate)
	assert.InDelta(t, 0.5, summary.AttemptFailureRate, 1e-9)
}

func TestMatch_CancelledContext(t *testing.T) {
	f := newFixture(t)
	cv, q := goDeveloper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.uc.Match(ctx, MatchRequest{CV: cv, Questionnaire: q, Jobs: jobs()})
	assert.ErrorIs(t, err, context.Canceled)

	records, err := f.store.ListSince(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStrategyHealth(t *testing.T) {
	f := newFixture(t)
	health, err := f.uc.StrategyHealth(context.Background())
	require.NoError(t, err)
	assert.Len(t, health, len(matching.Strategies)-1)
	for _, h := range health {
		assert.Equal(t, guard.StateClosed, h.State)
	}
}

func TestQuestionnaireCompleteness(t *testing.T) {
	_, q := goDeveloper()
	assert.InDelta(t, 0.75, q.completeness(), 1e-9)
	assert.True(t, toCandidate("x", CVData{}, q).QuestionnairePartial())

	full := q
	full.Priorities = map[string]bool{"salaire": true}
	assert.InDelta(t, 1.0, full.completeness(), 1e-9)
	assert.True(t, toCandidate("x", CVData{}, full).QuestionnaireComplete())

	empty := toCandidate("x", CVData{}, QuestionnaireData{})
	assert.Zero(t, empty.QuestionnaireCompleteness)
	assert.False(t, empty.QuestionnairePartial())
}

func TestMatch_CoreQuestionnaireSelectsAdvancedProfile(t *testing.T) {
	f := newFixture(t)
	cv := CVData{
		Skills:          []string{"Go", "PostgreSQL", "Docker", "Kubernetes", "Terraform"},
		YearsExperience: fp(9),
	}
	q := QuestionnaireData{
		Address:       "Paris",
		DesiredSalary: fp(60000),
		Priorities:    map[string]bool{"evolution": true},
		Objectives:    map[string]bool{"evolution_rapide": true},
	}
	job := JobData{
		ID:                "lead",
		Title:             "Lead Go",
		RequiredSkills:    []string{"Go", "PostgreSQL"},
		Location:          "Paris",
		SalaryMin:         55000,
		SalaryMax:         65000,
		RequiredYears:     6,
		GrowthPerspective: true,
	}

	auto, err := f.uc.Match(context.Background(), MatchRequest{CV: cv, Questionnaire: q, Jobs: []JobData{job}})
	require.NoError(t, err)
	require.Len(t, auto.Items, 1)
	assert.Equal(t, matching.StrategyAdvancedProfile, auto.Items[0].Selected)
	assert.Equal(t, matching.StrategyAdvancedProfile, auto.Items[0].Used)
}

func TestMatch_ConcurrentIdenticalRequestsScoreOnce(t *testing.T) {
	uc, gs, store := newGatedUsecase(t)
	cv, q := goDeveloper()
	req := MatchRequest{CandidateID: "cand-1", CV: cv, Questionnaire: q, Jobs: jobs()[1:2], Algorithm: "advanced-profile"}

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	results := make([]MatchResponse, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = uc.Match(context.Background(), req)
		}()
	}

	require.Eventually(t, func() bool { return gs.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(gs.release)
	wg.Wait()

	assert.EqualValues(t, 1, gs.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i].Items, 1)
		assert.Equal(t, 70, results[i].Items[0].Result.Aggregate)
	}

	records, err := store.ListSince(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, callers)
}

func TestMatch_CancelledCallerDoesNotFailSharedRequest(t *testing.T) {
	uc, gs, store := newGatedUsecase(t)
	cv, q := goDeveloper()
	req := MatchRequest{CandidateID: "cand-1", CV: cv, Questionnaire: q, Jobs: jobs()[1:2], Algorithm: "advanced-profile"}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := uc.Match(ctxA, req)
		errA <- err
	}()
	require.Eventually(t, func() bool { return gs.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		resp MatchResponse
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		resp, err := uc.Match(context.Background(), req)
		resB <- result{resp: resp, err: err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(gs.release)
	b := <-resB
	require.NoError(t, b.err)
	require.Len(t, b.resp.Items, 1)
	assert.Equal(t, matching.StrategyAdvancedProfile, b.resp.Items[0].Used)
	assert.EqualValues(t, 1, gs.calls.Load())

	records, err := store.ListSince(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)

	health, err := uc.StrategyHealth(context.Background())
	require.NoError(t, err)
	for _, h := range health {
		assert.Zero(t, h.ConsecutiveFailures, h.Strategy)
	}
}

func TestMatchCacheKey(t *testing.T) {
	c := toCandidate("a", CVData{Skills: []string{"go"}}, QuestionnaireData{})
	j := toJob(JobData{ID: "j"})

	k1 := MatchCacheKey(c, j, matching.StrategyAdvancedProfile)
	assert.True(t, strings.HasPrefix(k1, "match:result:"))
	assert.Equal(t, k1, MatchCacheKey(c, j, matching.StrategyAdvancedProfile))
	assert.NotEqual(t, k1, MatchCacheKey(c, j, matching.StrategyGeoPriority))
}
