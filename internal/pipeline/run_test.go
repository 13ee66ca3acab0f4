package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/proposal-customizer/internal/catalog"
	"github.com/jonathan/proposal-customizer/internal/locator"
	"github.com/jonathan/proposal-customizer/internal/observability"
	"github.com/jonathan/proposal-customizer/internal/templates"
	"github.com/jonathan/proposal-customizer/internal/types"
	"github.com/jonathan/proposal-customizer/internal/validation"
)

var miniTemplate = types.Template{
	ID: "mini",
	Parameters: []types.ParameterSpec{
		{Key: "table_size", Label: "Table size"},
		{Key: "spindle_taper", Label: "Spindle taper"},
		{Key: "nc_system", Label: "NC system"},
	},
	Sections: types.SectionMarkers{
		MainUnits: []string{"main units"},
		Standard:  []string{"standard equipment"},
		Options:   []string{"optional equipment"},
	},
}

func dvfCatalog() *types.CatalogDocument {
	return &types.CatalogDocument{
		Path: "dvf.json",
		Name: "DVF series",
		Pages: []types.Page{
			{
				Number: 1,
				TextBlocks: []types.TextBlock{
					{Text: "DVF 5000 vertical machining center"},
					{Text: "Main units\n- Base and column\nStandard equipment\n- Coolant tank\nOptional equipment\n- Oil skimmer"},
				},
				TableRows: []types.TableRow{
					{HeaderPath: []string{"Table", "Table size"}, Cells: []string{"Table size", "mm (inch)", "ø650 x 500"}},
					{HeaderPath: []string{"Spindle", "Spindle taper"}, Cells: []string{"Spindle taper", "BT40"}},
				},
			},
			{
				Number:    2,
				TableRows: []types.TableRow{{Cells: []string{"Coolant tank capacity", "400 L"}}},
			},
		},
	}
}

// memoryLoader serves documents by path and counts loads per path.
type memoryLoader struct {
	mu    sync.Mutex
	docs  map[string]*types.CatalogDocument
	calls map[string]int
}

func newMemoryLoader(docs ...*types.CatalogDocument) *memoryLoader {
	l := &memoryLoader{docs: map[string]*types.CatalogDocument{}, calls: map[string]int{}}
	for _, d := range docs {
		l.docs[d.Path] = d
	}
	return l
}

func (l *memoryLoader) load(_ context.Context, path string) (*types.CatalogDocument, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[path]++
	doc, ok := l.docs[path]
	if !ok {
		return nil, &catalog.UnreadableError{Path: path, Message: "no such catalog"}
	}
	return doc, nil
}

func newTestEngine(t *testing.T, loader *memoryLoader, opts Options) *Engine {
	t.Helper()
	registry, err := templates.NewRegistry(miniTemplate)
	require.NoError(t, err)
	cache := catalog.NewCache(nil, catalog.WithLoader(loader.load), catalog.WithLoadHook(opts.Metrics.RecordCatalogLoad))
	return NewEngine(cache, registry, opts)
}

func TestEngine_Run_OK(t *testing.T) {
	engine := newTestEngine(t, newMemoryLoader(dvfCatalog()), Options{})

	outcome := engine.Run(context.Background(), Request{Model: "DVF 5000", Template: "mini", Catalogs: []string{"dvf.json"}})

	require.False(t, outcome.Failed(), outcome.Error)
	assert.Equal(t, types.StatusOK, outcome.Status)

	report := outcome.Report
	assert.InDelta(t, 2.0/3.0, report.Coverage, 1e-9)
	assert.Equal(t, []string{"NC system"}, report.Missing)
	assert.Empty(t, report.Violations)

	result := report.Result
	assert.Equal(t, "DVF 5000", result.Model)
	assert.Equal(t, "DVF series", result.CatalogName)
	assert.Equal(t, "dvf.json", result.Catalog)
	assert.Equal(t, "mini", result.Template)
	assert.Equal(t, []int{1}, result.Pages)
	assert.NotNil(t, result.Warnings)
	assert.Empty(t, result.Warnings)

	require.Len(t, result.Parameters, 3)
	assert.Equal(t, "ø650 x 500", *result.Parameters[0].Value)
	assert.Equal(t, "BT40", *result.Parameters[1].Value)
	assert.Nil(t, result.Parameters[2].Value)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, "table_size", result.Trace[0].Key)
	assert.Equal(t, types.Items{
		MainUnits:     []string{"Base and column"},
		StandardItems: []string{"Coolant tank"},
		OptionItems:   []string{"Oil skimmer"},
	}, result.Items)
}

func TestEngine_Run_ModelMissingEverywhere(t *testing.T) {
	engine := newTestEngine(t, newMemoryLoader(dvfCatalog()), Options{FallbackPages: 1})

	outcome := engine.Run(context.Background(), Request{Model: "HT 2500", Template: "mini", Catalogs: []string{"dvf.json"}})

	require.False(t, outcome.Failed())
	assert.Equal(t, types.StatusError, outcome.Status)

	result := outcome.Report.Result
	require.Len(t, result.Warnings, 2)
	assert.Equal(t, types.WarnModelNotFoundInCatalogs, result.Warnings[0].Code)
	assert.Equal(t, types.WarnModelNotFoundOnPages, result.Warnings[1].Code)
	assert.Len(t, result.Pages, 1)

	var rules []string
	for _, v := range outcome.Report.Violations {
		rules = append(rules, v.Type)
	}
	assert.Contains(t, rules, validation.RuleLocatorWarnings)
}

func TestEngine_Run_Failures(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{
			name:    "every catalog unreadable",
			req:     Request{Model: "DVF 5000", Template: "mini", Catalogs: []string{"missing.json", "gone.json"}},
			wantErr: "catalog unreadable: missing.json",
		},
		{
			name:    "model only possibly in unreadable catalog",
			req:     Request{Model: "HT 2500", Template: "mini", Catalogs: []string{"dvf.json", "missing.json"}},
			wantErr: "catalog unreadable: missing.json",
		},
		{
			name:    "unknown template",
			req:     Request{Model: "DVF 5000", Template: "nope", Catalogs: []string{"dvf.json"}},
			wantErr: "unknown template",
		},
		{
			name:    "no catalogs",
			req:     Request{Model: "DVF 5000", Template: "mini"},
			wantErr: locator.ErrNoCatalogs.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, newMemoryLoader(dvfCatalog()), Options{})

			outcome := engine.Run(context.Background(), tt.req)

			assert.True(t, outcome.Failed())
			assert.Nil(t, outcome.Report)
			assert.Equal(t, types.StatusError, outcome.Status)
			assert.Equal(t, tt.req.Model, outcome.Model)
			assert.Contains(t, outcome.Error, tt.wantErr)
		})
	}
}

func TestEngine_Run_SkipsUnreadableCatalog(t *testing.T) {
	loader := newMemoryLoader(dvfCatalog())
	engine := newTestEngine(t, loader, Options{})

	outcome := engine.Run(context.Background(), Request{Model: "DVF 5000", Template: "mini", Catalogs: []string{"missing.json", "dvf.json"}})

	require.False(t, outcome.Failed(), outcome.Error)
	assert.Equal(t, types.StatusOK, outcome.Status)
	assert.Equal(t, "dvf.json", outcome.Report.Result.Catalog)
	assert.Equal(t, 1, loader.calls["missing.json"])

	loc, err := engine.Locate(context.Background(), Request{Model: "DVF 5000", Catalogs: []string{"missing.json", "dvf.json"}})
	require.NoError(t, err)
	assert.Equal(t, locator.MatchExact, loc.Match)

	_, err = engine.Locate(context.Background(), Request{Model: "HT 2500", Catalogs: []string{"dvf.json", "missing.json"}})
	assert.ErrorIs(t, err, catalog.ErrCatalogUnreadable)
}

// htCatalog numbers its pages 4 and 9, so positions and page numbers differ.
func htCatalog() *types.CatalogDocument {
	return &types.CatalogDocument{
		Path: "ht.json",
		Name: "HT series",
		Pages: []types.Page{
			{
				Number:     4,
				TextBlocks: []types.TextBlock{{Text: "Turning centers overview"}},
				TableRows: []types.TableRow{
					{HeaderPath: []string{"Table", "Table size"}, Cells: []string{"Table size", "mm", "500 x 400"}},
					{Cells: []string{"NC system", "FANUC 0i"}},
				},
			},
			{
				Number:     9,
				TextBlocks: []types.TextBlock{{Text: "HT 2500 turning center\nSpindle taper: A2-6"}},
				TableRows: []types.TableRow{
					{HeaderPath: []string{"Table", "Table size"}, Cells: []string{"Table size", "mm", "ø300"}},
					{HeaderPath: []string{"Spindle", "Spindle taper"}, Cells: []string{"Spindle taper", "A2-8"}},
				},
			},
		},
	}
}

func TestEngine_TracePagesExist(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		wantWarns int
	}{
		{name: "model on page", model: "HT 2500"},
		{name: "table-dense fallback pages", model: "HT 3100", wantWarns: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := htCatalog()
			engine := newTestEngine(t, newMemoryLoader(doc), Options{FallbackPages: 2})

			result, err := engine.Extract(context.Background(), Request{Model: tt.model, Template: "mini", Catalogs: []string{"ht.json"}})
			require.NoError(t, err)
			assert.Len(t, result.Warnings, tt.wantWarns)

			require.NotEmpty(t, result.Trace)
			for _, entry := range result.Trace {
				assert.True(t, doc.HasPage(entry.Page), "trace %s cites page %d", entry.Key, entry.Page)
				assert.Contains(t, result.Pages, entry.Page)
			}
			for _, p := range result.Parameters {
				if p.Winner == nil {
					continue
				}
				assert.True(t, doc.HasPage(p.Winner.Page), "winner %s cites page %d", p.Key, p.Winner.Page)
				for _, r := range p.Rejected {
					assert.True(t, doc.HasPage(r.Candidate.Page), "rejected %s cites page %d", p.Key, r.Candidate.Page)
				}
			}
		})
	}
}

func TestEngine_Extract_ReturnsErrors(t *testing.T) {
	engine := newTestEngine(t, newMemoryLoader(), Options{})

	_, err := engine.Extract(context.Background(), Request{Model: "DVF 5000", Template: "mini", Catalogs: []string{"missing.json"}})
	assert.ErrorIs(t, err, catalog.ErrCatalogUnreadable)

	_, err = engine.Extract(context.Background(), Request{Model: "DVF 5000", Template: "mini"})
	assert.ErrorIs(t, err, locator.ErrNoCatalogs)

	_, err = engine.Extract(context.Background(), Request{Model: "DVF 5000", Template: "nope", Catalogs: []string{"x.json"}})
	assert.ErrorIs(t, err, templates.ErrUnknownTemplate)
}

func TestEngine_Progress(t *testing.T) {
	var steps []string
	engine := newTestEngine(t, newMemoryLoader(dvfCatalog()), Options{
		OnProgress: func(e ProgressEvent) {
			assert.Equal(t, "DVF 5000", e.Model)
			steps = append(steps, e.Step)
		},
	})

	engine.Run(context.Background(), Request{Model: "DVF 5000", Template: "mini", Catalogs: []string{"dvf.json"}})

	assert.Equal(t, []string{StepLoad, StepLocate, StepMatch, StepTrace, StepItems, StepReview}, steps)
}

func TestEngine_Deterministic(t *testing.T) {
	engine := newTestEngine(t, newMemoryLoader(dvfCatalog()), Options{})
	req := Request{Model: "DVF 5000", Template: "mini", Catalogs: []string{"dvf.json"}}

	first := engine.Run(context.Background(), req)
	second := engine.Run(context.Background(), req)

	assert.Equal(t, first, second)
}

func TestExtractFrom(t *testing.T) {
	result, err := ExtractFrom([]*types.CatalogDocument{dvfCatalog()}, "DVF 5000", miniTemplate, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.ResolvedCount())
	assert.Len(t, result.Parameters, 3)

	_, err = ExtractFrom(nil, "DVF 5000", miniTemplate, Options{})
	assert.ErrorIs(t, err, locator.ErrNoCatalogs)
}

func TestEngine_Metrics(t *testing.T) {
	metrics := observability.NewMetrics()
	engine := newTestEngine(t, newMemoryLoader(dvfCatalog()), Options{Metrics: metrics})

	engine.Run(context.Background(), Request{Model: "DVF 5000", Template: "mini", Catalogs: []string{"dvf.json"}})
	engine.Run(context.Background(), Request{Model: "HT 2500", Template: "mini", Catalogs: []string{"dvf.json"}})
	engine.Run(context.Background(), Request{Model: "HT 2500", Template: "mini", Catalogs: []string{"gone.json"}})

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["proposal_runs_total"])
	assert.True(t, names["proposal_locator_warnings_total"])
	assert.True(t, names["proposal_catalog_loads_total"])
	assert.True(t, names["proposal_coverage_ratio"])
}

func TestNewEngine_Defaults(t *testing.T) {
	engine := NewEngine(nil, nil, Options{})

	assert.Equal(t, DefaultWorkers, engine.opts.Workers)
	assert.NotNil(t, engine.cache)
	_, err := engine.registry.Get("dvf")
	assert.NoError(t, err)
}

// recordingStore collects saved run ids and fails for one model.
type recordingStore struct {
	mu      sync.Mutex
	saved   []uuid.UUID
	failFor string
}

func (s *recordingStore) SaveOutcome(_ context.Context, runID uuid.UUID, outcome types.ModelOutcome) error {
	if outcome.Model == s.failFor {
		return errors.New("connection refused")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, runID)
	return nil
}

func TestEngine_RunBatch(t *testing.T) {
	loader := newMemoryLoader(dvfCatalog())
	store := &recordingStore{failFor: "HT 2500"}
	engine := newTestEngine(t, loader, Options{Workers: 3, Store: store})

	models := []string{"DVF 5000", "DVF5000", "dvf 5000", "HT 2500", "DVF 5000", "DVF 5000", "DVF-5000", "DVF 5000"}
	reqs := make([]Request, len(models))
	for i, m := range models {
		reqs[i] = Request{Model: m, Template: "mini", Catalogs: []string{"dvf.json"}}
	}
	reqs[5].Catalogs = []string{"missing.json"}

	batch, err := engine.RunBatch(context.Background(), reqs)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, batch.ID)
	assert.False(t, batch.Finished.Before(batch.Started))
	require.Len(t, batch.Outcomes, len(reqs))
	for i, o := range batch.Outcomes {
		assert.Equal(t, reqs[i].Model, o.Model)
	}
	assert.True(t, batch.Outcomes[5].Failed())
	assert.False(t, batch.Outcomes[3].Failed())
	assert.NotEmpty(t, batch.Outcomes[3].Report.Result.Warnings)
	assert.Equal(t, map[string]int{types.StatusOK: 6, types.StatusError: 2}, batch.Counts())

	assert.Equal(t, 1, loader.calls["dvf.json"])
	assert.Len(t, store.saved, 7)
	for _, id := range store.saved {
		assert.Equal(t, batch.ID, id)
	}
}

func TestEngine_RunBatch_Cancelled(t *testing.T) {
	engine := newTestEngine(t, newMemoryLoader(dvfCatalog()), Options{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reqs := []Request{
		{Model: "DVF 5000", Template: "mini", Catalogs: []string{"dvf.json"}},
		{Model: "DVF 8000", Template: "mini", Catalogs: []string{"dvf.json"}},
	}
	batch, err := engine.RunBatch(ctx, reqs)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, batch)
	require.Len(t, batch.Outcomes, 2)
	for _, o := range batch.Outcomes {
		assert.Equal(t, types.StatusError, o.Status)
		assert.True(t, o.Failed())
	}
}

func TestEngine_RunBatchWithID(t *testing.T) {
	engine := newTestEngine(t, newMemoryLoader(dvfCatalog()), Options{})
	id := uuid.New()

	batch, err := engine.RunBatchWithID(context.Background(), id, nil)

	require.NoError(t, err)
	assert.Equal(t, id, batch.ID)
	assert.Empty(t, batch.Outcomes)
}
