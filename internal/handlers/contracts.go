package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// GetContractHandler returns the contract row for a Won project. The row is
// created by the lifecycle engine on the first transition into Won.
func (h *Handler) GetContractHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseProjectID(r)
	if !ok {
		http.Error(w, "Invalid projectId", http.StatusBadRequest)
		return
	}

	c, err := h.Store.GetContractByProject(r.Context(), projectID)
	if err != nil {
		http.Error(w, "Failed to get contract", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.Error(w, "No contract for project", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// UpdateContractHandler handles PUT /api/projects/{projectId}/contract.
// actualDuration is never accepted from the client: it is always rederived
// from the actual start and end dates on save.
func (h *Handler) UpdateContractHandler(w http.ResponseWriter, r *http.Request) {
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
		ContractDate *string `json:"contractDate"`
		ActualStart  *string `json:"actualStart"`
		ActualEnd    *string `json:"actualEnd"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	c, err := h.Store.GetContractByProject(r.Context(), projectID)
	if err != nil {
		http.Error(w, "Failed to get contract", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.Error(w, "No contract for project", http.StatusNotFound)
		return
	}

	if input.ContractDate != nil {
		if c.ContractDate, err = parseOptionalDate(input.ContractDate); err != nil {
			http.Error(w, "Invalid contractDate, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	if input.ActualStart != nil {
		if c.ActualStart, err = parseOptionalDate(input.ActualStart); err != nil {
			http.Error(w, "Invalid actualStart, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	if input.ActualEnd != nil {
		if c.ActualEnd, err = parseOptionalDate(input.ActualEnd); err != nil {
			http.Error(w, "Invalid actualEnd, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	c.ActualDuration = contractDuration(c.ActualStart, c.ActualEnd)

	if err := h.Store.UpdateContract(r.Context(), c); err != nil {
		h.Log.Error("save contract", zap.Int("project", projectID), zap.Error(err))
		http.Error(w, "Failed to save contract", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// contractDuration is the whole-day span between the actual start and end,
// clamped at zero. Nil when either bound is missing.
func contractDuration(start, end *time.Time) *int {
	if start == nil || end == nil {
		return nil
	}
	days := int(end.Sub(*start).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}
