package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bidtrack/internal/analysis"
	"bidtrack/internal/finance"
	"bidtrack/internal/lifecycle"
	"bidtrack/models"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams parses limit and offset from query, with defaults and caps
func parsePaginationParams(r *http.Request) PaginationParams {
	var params PaginationParams
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	params.Limit = 20
	params.Offset = 0

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			params.Limit = l
		}
	}
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params
}

func parseProjectID(r *http.Request) (int, bool) {
	idStr := chi.URLParam(r, "projectId")
	id, err := strconv.Atoi(idStr)
	return id, err == nil && id > 0
}

// GetProjectsHandler returns projects filtered by status and region
func (h *Handler) GetProjectsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	statuses := r.URL.Query()["status"]
	var filtered []string
	for _, v := range statuses {
		if contains(models.Statuses, v) {
			filtered = append(filtered, v)
		}
	}

	region := strings.TrimSpace(r.URL.Query().Get("region"))
	if region != "" && !contains(models.Regions, region) {
		http.Error(w, "Invalid region", http.StatusBadRequest)
		return
	}

	projects, err := h.Store.GetProjects(r.Context(), filtered, region, params.Limit, params.Offset)
	if err != nil {
		http.Error(w, "Failed to get projects", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(projects)
}

// GetProjectHandler returns one project with its client name
func (h *Handler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseProjectID(r)
	if !ok {
		http.Error(w, "Invalid projectId", http.StatusBadRequest)
		return
	}

	p, err := h.Store.GetProjectWithClient(r.Context(), projectID)
	if err != nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// ChangeProjectStatusHandler handles PUT /api/projects/{projectId}/status.
// Status and bid type go through the lifecycle engine so milestone dates,
// the contract row and the audit trail stay consistent.
func (h *Handler) ChangeProjectStatusHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseProjectID(r)
	if !ok {
		http.Error(w, "Invalid projectId", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Cannot read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var input struct {
		Status         *string `json:"status"`
		BidType        *string `json:"bidType"`
		SubmissionDate *string `json:"submissionDate"`
		AwardDate      *string `json:"awardDate"`
		LostDate       *string `json:"lostDate"`
		Actor          *string `json:"actor"`
		Notes          *string `json:"notes"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if input.Status == nil && input.BidType == nil {
		http.Error(w, "Nothing to change", http.StatusBadRequest)
		return
	}
	if input.Status != nil && !contains(models.Statuses, *input.Status) {
		http.Error(w, "Invalid status value", http.StatusBadRequest)
		return
	}
	if input.BidType != nil && !contains(models.BidTypes, *input.BidType) {
		http.Error(w, "Invalid bidType value", http.StatusBadRequest)
		return
	}

	p, err := h.Store.GetProjectWithClient(r.Context(), projectID)
	if err != nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	ch := lifecycle.Change{
		Status:     input.Status,
		BidType:    input.BidType,
		ClientName: p.ClientName,
		Actor:      input.Actor,
		Notes:      input.Notes,
	}
	if ch.SubmissionDate, err = parseOptionalDate(input.SubmissionDate); err != nil {
		http.Error(w, "Invalid submissionDate, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if ch.AwardDate, err = parseOptionalDate(input.AwardDate); err != nil {
		http.Error(w, "Invalid awardDate, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if ch.LostDate, err = parseOptionalDate(input.LostDate); err != nil {
		http.Error(w, "Invalid lostDate, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	result, err := h.Engine.Apply(r.Context(), &p.Project, ch)
	if err != nil {
		h.Log.Error("status transition", zap.Int("project", projectID), zap.Error(err))
		http.Error(w, "Failed to update status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Project    *models.Project             `json:"project"`
		Transition *lifecycle.TransitionResult `json:"transition"`
	}{&p.Project, result})
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// EditProjectHandler handles PATCH /api/projects/{projectId}/edit for the
// non-lifecycle fields. Status and bid type are rejected here.
func (h *Handler) EditProjectHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseProjectID(r)
	if !ok {
		http.Error(w, "Invalid projectId", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Cannot read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var input struct {
		Name         *string `json:"name"`
		Country      *string `json:"country"`
		Region       *string `json:"region"`
		DeadlineDate *string `json:"deadlineDate"`
		Comments     *string `json:"comments"`
		Status       *string `json:"status"`
		BidType      *string `json:"bidType"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if input.Status != nil || input.BidType != nil {
		http.Error(w, "Use the status endpoint for lifecycle changes", http.StatusBadRequest)
		return
	}

	p, err := h.Store.GetProject(r.Context(), projectID)
	if err != nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	if input.Name != nil {
		if *input.Name == "" || len(*input.Name) > 255 {
			http.Error(w, "name is required and max length 255", http.StatusBadRequest)
			return
		}
		p.Name = *input.Name
	}
	if input.Country != nil {
		p.Country = *input.Country
	}
	if input.Region != nil {
		if !contains(models.Regions, *input.Region) {
			http.Error(w, "Invalid region", http.StatusBadRequest)
			return
		}
		p.Region = input.Region
	}
	if input.DeadlineDate != nil {
		d, err := parseOptionalDate(input.DeadlineDate)
		if err != nil {
			http.Error(w, "Invalid deadlineDate, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		p.DeadlineDate = d
	}
	if input.Comments != nil {
		p.Comments = input.Comments
	}

	if err := h.Store.UpdateProject(r.Context(), p); err != nil {
		http.Error(w, "Failed to update project", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// GetFinancialHandler returns the P&L row for a project
func (h *Handler) GetFinancialHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseProjectID(r)
	if !ok {
		http.Error(w, "Invalid projectId", http.StatusBadRequest)
		return
	}

	f, err := h.Store.GetFinancialByProject(r.Context(), projectID)
	if err != nil {
		http.Error(w, "Failed to get financials", http.StatusInternalServerError)
		return
	}
	if f == nil {
		http.Error(w, "No financials for project", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f)
}

// SaveFinancialHandler handles PUT /api/projects/{projectId}/financials.
// Only the input columns are accepted; the waterfall is recomputed on every
// save so the derived columns can never drift from the inputs.
func (h *Handler) SaveFinancialHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseProjectID(r)
	if !ok {
		http.Error(w, "Invalid projectId", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Cannot read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var input finance.Inputs
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if _, err := h.Store.GetProject(r.Context(), projectID); err != nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	f, err := h.Store.GetFinancialByProject(r.Context(), projectID)
	if err != nil {
		http.Error(w, "Failed to get financials", http.StatusInternalServerError)
		return
	}
	if f == nil {
		f = &models.Financial{ProjectID: projectID}
	}

	f.TotalDirectCost = input.TotalDirectCost
	f.GM = input.GM
	f.OverheadDayrate = input.OverheadDayrate
	f.DurationRaw = input.DurationRaw
	f.DurationWithDT = input.DurationWithDT
	f.Depreciation = input.Depreciation
	f.Taxes = input.Taxes
	finance.Recompute(f)

	if err := h.Store.SaveFinancial(r.Context(), f); err != nil {
		h.Log.Error("save financial", zap.Int("project", projectID), zap.Error(err))
		http.Error(w, "Failed to save financials", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f)
}

// AddCompetitorHandler handles POST /api/projects/{projectId}/competitors
func (h *Handler) AddCompetitorHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseProjectID(r)
	if !ok {
		http.Error(w, "Invalid projectId", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Cannot read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var c models.Competitor
	if err := json.Unmarshal(body, &c); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	c.ProjectID = projectID

	if err := h.Store.CreateCompetitor(r.Context(), &c); err != nil {
		http.Error(w, "Failed to add competitor", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// GetCompetitorsHandler returns the competitors recorded against a project
func (h *Handler) GetCompetitorsHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseProjectID(r)
	if !ok {
		http.Error(w, "Invalid projectId", http.StatusBadRequest)
		return
	}

	competitors, err := h.Store.GetCompetitorsByProject(r.Context(), projectID)
	if err != nil {
		http.Error(w, "Failed to get competitors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(competitors)
}

// GetChangeLogHandler returns the transition timeline for a project
func (h *Handler) GetChangeLogHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseProjectID(r)
	if !ok {
		http.Error(w, "Invalid projectId", http.StatusBadRequest)
		return
	}
	params := parsePaginationParams(r)

	entries, err := h.Store.GetChangeLogByProject(r.Context(), projectID, params.Limit, params.Offset)
	if err != nil {
		http.Error(w, "Failed to get changelog", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// GetSnapshotsHandler returns the pre-change snapshots for a project
func (h *Handler) GetSnapshotsHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseProjectID(r)
	if !ok {
		http.Error(w, "Invalid projectId", http.StatusBadRequest)
		return
	}
	params := parsePaginationParams(r)

	snaps, err := h.Store.GetSnapshotsByProject(r.Context(), projectID, params.Limit, params.Offset)
	if err != nil {
		http.Error(w, "Failed to get snapshots", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snaps)
}

// AttributeChangeLogHandler handles PUT /api/projects/{projectId}/changelog/attribute.
// Batch imports leave changed_by empty; this endpoint lets a reviewer claim
// the most recent matching entry afterwards.
func (h *Handler) AttributeChangeLogHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseProjectID(r)
	if !ok {
		http.Error(w, "Invalid projectId", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Cannot read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var input struct {
		FieldName string `json:"fieldName"`
		NewValue  string `json:"newValue"`
		Actor     string `json:"actor"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if input.FieldName == "" || input.NewValue == "" || input.Actor == "" {
		http.Error(w, "fieldName, newValue and actor are required", http.StatusBadRequest)
		return
	}

	patched, err := h.Store.AttributeChangeLog(r.Context(), projectID, input.FieldName, input.NewValue, input.Actor)
	if err != nil {
		http.Error(w, "Failed to attribute changelog", http.StatusInternalServerError)
		return
	}
	if patched == 0 {
		http.Error(w, "No matching unattributed entry", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"patched": patched})
}

// GetSummaryHandler returns portfolio statistics across all projects
func (h *Handler) GetSummaryHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjectsWithClients(r.Context())
	if err != nil {
		http.Error(w, "Failed to get projects", http.StatusInternalServerError)
		return
	}

	items := make([]analysis.ProjectFinancial, 0, len(projects))
	for _, p := range projects {
		f, err := h.Store.GetFinancialByProject(r.Context(), p.ID)
		if err != nil {
			http.Error(w, "Failed to get financials", http.StatusInternalServerError)
			return
		}
		items = append(items, analysis.ProjectFinancial{Project: p.Project, Financial: f})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analysis.Summarize(items))
}
