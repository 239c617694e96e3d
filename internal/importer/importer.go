package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bidtrack/db"
	"bidtrack/internal/finance"
	"bidtrack/internal/lifecycle"
	"bidtrack/internal/match"
	"bidtrack/models"
)

// Record is one flat key->text observation from an external spreadsheet.
type Record map[string]string

type Mode string

const (
	// ModeLost reconciles a lost-bids sheet: fuzzy-match against the
	// catalog, advance matches through Submitted -> Lost, capture the
	// winning competitor and the P&L.
	ModeLost Mode = "lost"
	// ModeProgress imports a submitted/in-progress sheet: always creates
	// new records, no resolution step.
	ModeProgress Mode = "progress"
)

// MediumPolicy decides what happens to a medium-confidence match. The source
// sheets differ on this, so it is configuration, not a constant.
type MediumPolicy string

const (
	MediumSkip   MediumPolicy = "skip"
	MediumCreate MediumPolicy = "create"
)

type Options struct {
	Mode     Mode
	DryRun   bool
	OnMedium MediumPolicy
}

// Ambiguous is a resolution that needs manual follow-up.
type Ambiguous struct {
	SourceClient string
	SourceSurvey string
	ClosestMatch string
	Score        float64
	Reason       string
}

type Stats struct {
	Total           int
	Matched         int
	Created         int
	Skipped         int
	Ambiguous       int
	Errors          int
	FinancialSaved  int
	TechnologySaved int
	ScopeSaved      int
	Competitors     int
}

type Report struct {
	Stats     Stats
	Ambiguous []Ambiguous
}

// Storage is the catalog contract the pipeline mutates through.
type Storage interface {
	ListProjectsWithClients(ctx context.Context) ([]db.ProjectWithClient, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	GetOrCreateClient(ctx context.Context, name string) (*models.Client, error)
	CreateProject(ctx context.Context, p *models.Project) error

	GetFinancialByProject(ctx context.Context, projectID int) (*models.Financial, error)
	SaveFinancial(ctx context.Context, f *models.Financial) error
	EnsureCompetitor(ctx context.Context, projectID int, name string) error
	GetTechnologyByProject(ctx context.Context, projectID int) (*models.ProjectTechnology, error)
	CreateTechnology(ctx context.Context, t *models.ProjectTechnology) error
	UpdateTechnology(ctx context.Context, t *models.ProjectTechnology) error
	GetScopeByProject(ctx context.Context, projectID int) (*models.ScopeOfWork, error)
	CreateScope(ctx context.Context, s *models.ScopeOfWork) error
	UpdateScope(ctx context.Context, s *models.ScopeOfWork) error
}

// Transitioner is the lifecycle engine surface the pipeline drives.
type Transitioner interface {
	Apply(ctx context.Context, p *models.Project, ch lifecycle.Change) (*lifecycle.TransitionResult, error)
}

// Runner drives one reconciliation run. Records are processed strictly in
// order: a record can resolve against a project created earlier in the same
// run, so the catalog view is refreshed after every creation.
type Runner struct {
	store  Storage
	engine Transitioner
	log    *zap.SugaredLogger
	opts   Options

	// dry-run bookkeeping: would-be creations, so later records in the
	// same run still resolve against them
	overlay []db.ProjectWithClient
}

func NewRunner(store Storage, engine Transitioner, log *zap.Logger, opts Options) *Runner {
	if opts.OnMedium == "" {
		opts.OnMedium = MediumSkip
	}
	return &Runner{store: store, engine: engine, log: log.Sugar(), opts: opts}
}

// Run processes all records and returns the outcome report. Per-record
// failures are counted and logged; the run itself continues.
func (r *Runner) Run(ctx context.Context, records []Record) (*Report, error) {
	report := &Report{}
	report.Stats.Total = len(records)

	catalog, err := r.store.ListProjectsWithClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	r.log.Infow("starting reconciliation run",
		"records", len(records), "existing_projects", len(catalog), "mode", r.opts.Mode, "dry_run", r.opts.DryRun)

	for i, rec := range records {
		switch r.opts.Mode {
		case ModeProgress:
			r.processProgress(ctx, i+1, rec, report)
		default:
			catalog = r.processLost(ctx, i+1, rec, catalog, report)
		}
	}

	return report, nil
}

// processLost handles one lost-bids record: resolve, create or advance, then
// attach financials, technology and scope. Returns the refreshed catalog.
func (r *Runner) processLost(ctx context.Context, n int, rec Record, catalog []db.ProjectWithClient, report *Report) []db.ProjectWithClient {
	client := strings.TrimSpace(rec["Client"])
	survey := strings.TrimSpace(rec["Survey"])
	if client == "" || survey == "" {
		r.log.Infow("record skipped, missing client or survey", "row", n)
		report.Stats.Skipped++
		return catalog
	}

	clientClean := cleanLabel(client)
	surveyClean := cleanLabel(survey)

	view := append(append([]db.ProjectWithClient(nil), catalog...), r.overlay...)
	candidates := make([]match.Candidate, len(view))
	for i, p := range view {
		candidates[i] = match.Candidate{ProjectID: p.ID, ClientName: p.ClientName, Name: p.Name}
	}

	best, score, tier := match.Resolve(clientClean, surveyClean, candidates)

	var project *models.Project
	var clientName string
	created := false

	switch tier {
	case match.TierExact, match.TierHigh:
		for i := range view {
			if view[i].ID == best.ProjectID {
				project = &view[i].Project
				clientName = view[i].ClientName
			}
		}
		r.log.Infow("record matched", "row", n, "project", project.Name, "score", score, "tier", tier)
		report.Stats.Matched++
	case match.TierMedium:
		report.Ambiguous = append(report.Ambiguous, Ambiguous{
			SourceClient: client,
			SourceSurvey: survey,
			ClosestMatch: closestLabel(best),
			Score:        score,
			Reason:       "medium confidence match, needs confirmation",
		})
		report.Stats.Ambiguous++
		if r.opts.OnMedium == MediumSkip {
			r.log.Infow("record ambiguous, skipped", "row", n, "score", score)
			return catalog
		}
		r.log.Infow("record ambiguous, creating new per policy", "row", n, "score", score)
		project, clientName = r.createProject(ctx, n, clientClean, surveyClean, rec, report)
		created = project != nil
	case match.TierLow:
		report.Ambiguous = append(report.Ambiguous, Ambiguous{
			SourceClient: client,
			SourceSurvey: survey,
			ClosestMatch: closestLabel(best),
			Score:        score,
			Reason:       "low confidence match, creating new record",
		})
		report.Stats.Ambiguous++
		project, clientName = r.createProject(ctx, n, clientClean, surveyClean, rec, report)
		created = project != nil
	default:
		project, clientName = r.createProject(ctx, n, clientClean, surveyClean, rec, report)
		created = project != nil
	}

	if project == nil {
		return catalog
	}

	submitted := ParseDate(rec["Bid Submitted"])

	if r.opts.DryRun {
		r.log.Infow("dry-run, would advance to Lost", "row", n, "project", project.Name)
		return catalog
	}

	if project.Status == models.StatusOngoing {
		ch := lifecycle.Change{Status: strPtr(models.StatusSubmitted), ClientName: clientName}
		ch.SubmissionDate = submitted
		if _, err := r.engine.Apply(ctx, project, ch); err != nil {
			r.log.Errorw("transition to Submitted failed", "row", n, "project", project.Name, "error", err)
			report.Stats.Errors++
			return catalog
		}
	}

	// A project already Lost (a duplicate row later in the same run) must
	// not replay the chain and duplicate its audit trail.
	if project.Status != models.StatusLost {
		if _, err := r.engine.Apply(ctx, project, lifecycle.Change{Status: strPtr(models.StatusLost), ClientName: clientName}); err != nil {
			r.log.Errorw("transition to Lost failed", "row", n, "project", project.Name, "error", err)
			report.Stats.Errors++
			return catalog
		}
	}

	if winner := rec["Winner"]; strings.TrimSpace(winner) != "" {
		if code, ok := match.MatchCompetitor(winner); ok {
			if err := r.store.EnsureCompetitor(ctx, project.ID, code); err != nil {
				r.log.Errorw("competitor save failed", "row", n, "error", err)
				report.Stats.Errors++
			} else {
				report.Stats.Competitors++
			}
		} else {
			r.log.Infow("winner not in competitor list", "row", n, "winner", winner)
		}
	}

	r.importFinancial(ctx, n, project.ID, rec, report)
	r.importTechnology(ctx, n, project.ID, rec, report)
	r.importScope(ctx, n, project.ID, rec, report)

	if created {
		refreshed, err := r.store.ListProjectsWithClients(ctx)
		if err != nil {
			r.log.Errorw("catalog refresh failed", "error", err)
			return catalog
		}
		return refreshed
	}

	// Later records in the same run must see the advanced status, not the
	// state the catalog was listed with.
	for i := range catalog {
		if catalog[i].ID == project.ID {
			catalog[i].Project = *project
		}
	}
	return catalog
}

// createProject creates a new Ongoing project for an unmatched record.
// Returns nil on persistence failure (counted, run continues).
func (r *Runner) createProject(ctx context.Context, n int, clientText, surveyText string, rec Record, report *Report) (*models.Project, string) {
	region := MapRegion(rec["Region"])
	p := &models.Project{
		Name:         surveyText,
		BidType:      models.BidTypeRFP,
		Region:       region,
		Country:      CountryForRegion(region),
		DateReceived: ParseDate(rec["Bid Submitted"]),
		Status:       models.StatusOngoing,
	}

	if r.opts.DryRun {
		r.log.Infow("dry-run, would create project", "row", n, "client", clientText, "survey", surveyText)
		report.Stats.Created++
		r.overlay = append(r.overlay, db.ProjectWithClient{Project: *p, ClientName: clientText})
		return nil, ""
	}

	client, err := r.resolveClient(ctx, clientText)
	if err != nil {
		r.log.Errorw("client resolution failed", "row", n, "client", clientText, "error", err)
		report.Stats.Errors++
		return nil, ""
	}
	if client != nil {
		p.ClientID = &client.ID
	}
	clientName := ""
	if client != nil {
		clientName = client.Name
	}

	if p.DateReceived != nil {
		p.InternalID = lifecycle.InternalID(p, clientName, false)
	}

	if err := r.store.CreateProject(ctx, p); err != nil {
		r.log.Errorw("project create failed", "row", n, "survey", surveyText, "error", err)
		report.Stats.Errors++
		return nil, ""
	}

	r.log.Infow("record created", "row", n, "project", p.Name)
	report.Stats.Created++
	return p, clientName
}

// resolveClient reuses an existing client on a high-confidence name match and
// creates one otherwise.
func (r *Runner) resolveClient(ctx context.Context, name string) (*models.Client, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}

	clients, err := r.store.ListClients(ctx)
	if err != nil {
		return nil, err
	}

	var best *models.Client
	bestScore := 0.0
	for i := range clients {
		if score := match.Score(name, clients[i].Name); score > bestScore {
			bestScore = score
			best = &clients[i]
		}
	}
	if best != nil && bestScore >= 0.85 {
		return best, nil
	}

	return r.store.GetOrCreateClient(ctx, name)
}

// importFinancial merges the parsed inputs into the project's financial
// record and recomputes the full waterfall. Derived sheet columns (revenue,
// GP, EBIT and friends) are deliberately ignored: derived values are always
// recomputed from inputs, never hand-entered.
func (r *Runner) importFinancial(ctx context.Context, n, projectID int, rec Record, report *Report) {
	cost := ParseCurrency(rec["Total Direct Cost"])
	gm := ParsePercent(rec["GM%"])
	duration := parseDuration(rec["Bid_Duration"])
	depreciation := ParseCurrency(rec["Total Depreciation"])
	taxes := ParseCurrency(rec["Taxes"])

	if cost == nil && gm == nil && duration == nil && depreciation == nil && taxes == nil {
		return
	}

	f, err := r.store.GetFinancialByProject(ctx, projectID)
	if err != nil {
		r.log.Errorw("financial load failed", "row", n, "error", err)
		report.Stats.Errors++
		return
	}
	if f == nil {
		f = &models.Financial{ProjectID: projectID}
	}

	// Only parsed values overwrite; absent fields keep what the record has.
	if cost != nil {
		f.TotalDirectCost = cost
	}
	if gm != nil {
		f.GM = gm
	}
	if duration != nil {
		f.DurationRaw = duration
		f.DurationWithDT = duration
	}
	if depreciation != nil {
		f.Depreciation = depreciation
	}
	if taxes != nil {
		f.Taxes = taxes
	}

	finance.Recompute(f)

	if err := r.store.SaveFinancial(ctx, f); err != nil {
		r.log.Errorw("financial save failed", "row", n, "error", err)
		report.Stats.Errors++
		return
	}
	report.Stats.FinancialSaved++
}

func (r *Runner) importTechnology(ctx context.Context, n, projectID int, rec Record, report *Report) {
	system := MapOBNSystem(rec["Bid_Node_Type"])
	if system == nil {
		return
	}

	tech, err := r.store.GetTechnologyByProject(ctx, projectID)
	if err != nil {
		r.log.Errorw("technology load failed", "row", n, "error", err)
		report.Stats.Errors++
		return
	}

	if tech != nil {
		tech.OBNSystem = system
		err = r.store.UpdateTechnology(ctx, tech)
	} else {
		tech = &models.ProjectTechnology{
			ProjectID:  projectID,
			Technology: models.TechnologyOBN,
			SurveyType: defaultSurveyType,
			OBNSystem:  system,
		}
		err = r.store.CreateTechnology(ctx, tech)
	}
	if err != nil {
		r.log.Errorw("technology save failed", "row", n, "error", err)
		report.Stats.Errors++
		return
	}
	report.Stats.TechnologySaved++
}

func (r *Runner) importScope(ctx context.Context, n, projectID int, rec Record, report *Report) {
	nodeCount := ParseInt(rec["Bid_Node_Count"])
	if nodeCount == nil {
		return
	}

	scope, err := r.store.GetScopeByProject(ctx, projectID)
	if err != nil {
		r.log.Errorw("scope load failed", "row", n, "error", err)
		report.Stats.Errors++
		return
	}

	if scope != nil {
		scope.CrewNodeCount = nodeCount
		err = r.store.UpdateScope(ctx, scope)
	} else {
		scope = &models.ScopeOfWork{ProjectID: projectID, CrewNodeCount: nodeCount}
		err = r.store.CreateScope(ctx, scope)
	}
	if err != nil {
		r.log.Errorw("scope save failed", "row", n, "error", err)
		report.Stats.Errors++
		return
	}
	report.Stats.ScopeSaved++
}

const defaultSurveyType = "3D Seismic"

// processProgress imports one submitted/in-progress record. These sheets only
// describe opportunities not yet in the catalog, so records are always
// created, with the status and dates taken as-is (no automatic stamping).
func (r *Runner) processProgress(ctx context.Context, n int, rec Record, report *Report) {
	client := strings.TrimSpace(rec["Client"])
	name := strings.TrimSpace(rec["Project"])
	status := strings.TrimSpace(rec["Bid_Status"])

	if client == "" || name == "" {
		r.log.Infow("record skipped, missing client or project name", "row", n)
		report.Stats.Skipped++
		return
	}
	if status != "Submitted-Complete" && status != "In Progress" {
		r.log.Infow("record skipped, status not imported", "row", n, "status", status)
		report.Stats.Skipped++
		return
	}

	region := MapRegion(rec["Region"])
	p := &models.Project{
		Name:           name,
		BidType:        MapBidType(rec["Bid_Type"]),
		Region:         region,
		Country:        MapCountry(rec["Country"]),
		Status:         MapStatus(status),
		DateReceived:   ParseDate(rec["Date_Received"]),
		SubmissionDate: ParseDate(rec["Date_Submitted"]),
	}

	if r.opts.DryRun {
		r.log.Infow("dry-run, would create project", "row", n, "client", client, "project", name, "status", p.Status)
		report.Stats.Created++
		return
	}

	cl, err := r.store.GetOrCreateClient(ctx, client)
	if err != nil {
		r.log.Errorw("client create failed", "row", n, "client", client, "error", err)
		report.Stats.Errors++
		return
	}
	if cl != nil {
		p.ClientID = &cl.ID
	}

	if p.DateReceived != nil {
		p.InternalID = lifecycle.InternalID(p, client, false)
	}

	if err := r.store.CreateProject(ctx, p); err != nil {
		r.log.Errorw("project create failed", "row", n, "project", name, "error", err)
		report.Stats.Errors++
		return
	}
	report.Stats.Created++
	r.log.Infow("record created", "row", n, "project", name, "status", p.Status)

	r.importProgressScope(ctx, n, p.ID, rec, report)
	r.importProgressTechnology(ctx, n, p.ID, rec, report)
}

func (r *Runner) importProgressScope(ctx context.Context, n, projectID int, rec Record, report *Report) {
	depthMin := ParseInt(rec["Water_Depth_Min"])
	depthMax := ParseInt(rec["Water_Depth_Max"])
	nodes := ParseInt(rec["Crew Node"])
	if depthMin == nil && depthMax == nil && nodes == nil {
		return
	}

	scope := &models.ScopeOfWork{
		ProjectID:     projectID,
		WaterDepthMin: depthMin,
		WaterDepthMax: depthMax,
		CrewNodeCount: nodes,
	}
	if err := r.store.CreateScope(ctx, scope); err != nil {
		r.log.Errorw("scope save failed", "row", n, "error", err)
		report.Stats.Errors++
		return
	}
	report.Stats.ScopeSaved++
}

func (r *Runner) importProgressTechnology(ctx context.Context, n, projectID int, rec Record, report *Report) {
	technique := MapOBNTechnique(rec["Survey_Type"])
	var system *string
	if key := strings.ToUpper(strings.TrimSpace(rec["Node_Type"])); key != "" {
		if mapped, ok := nodeTypeToSystem[key]; ok {
			system = &mapped
		}
	}
	if technique == nil && system == nil {
		return
	}

	tech := &models.ProjectTechnology{
		ProjectID:    projectID,
		Technology:   models.TechnologyOBN,
		SurveyType:   defaultSurveyType,
		OBNTechnique: technique,
		OBNSystem:    system,
	}
	if err := r.store.CreateTechnology(ctx, tech); err != nil {
		r.log.Errorw("technology save failed", "row", n, "error", err)
		report.Stats.Errors++
		return
	}
	report.Stats.TechnologySaved++
}

func parseDuration(s string) *decimal.Decimal {
	if v := ParseInt(s); v != nil {
		d := decimal.NewFromInt(int64(*v))
		return &d
	}
	return nil
}

// cleanLabel strips the leading asterisk markers some sheets carry.
func cleanLabel(s string) string {
	return strings.TrimSpace(strings.TrimLeft(s, "* \t"))
}

func closestLabel(c *match.Candidate) string {
	if c == nil {
		return "N/A"
	}
	return c.ClientName + "/" + c.Name
}

func strPtr(s string) *string { return &s }
