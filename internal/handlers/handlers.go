package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"bidtrack/internal/lifecycle"
	"bidtrack/models"
)

// Handler wraps the storage and the lifecycle engine for the HTTP API.
type Handler struct {
	Store  StorageInterface
	Engine *lifecycle.Engine
	Log    *zap.Logger
}

// NewHandler creates a new Handler. The storage doubles as the primary and
// audit sink for the lifecycle engine.
func NewHandler(store StorageInterface, log *zap.Logger) *Handler {
	return &Handler{
		Store:  store,
		Engine: lifecycle.NewEngine(store, store, log),
		Log:    log,
	}
}

// PingHandler answers "ok" for liveness checks
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type createProjectRequest struct {
	BidType      string  `json:"bidType"`
	ClientName   string  `json:"clientName"`
	Name         string  `json:"name"`
	Country      string  `json:"country"`
	Region       *string `json:"region"`
	DateReceived *string `json:"dateReceived"`
	DeadlineDate *string `json:"deadlineDate"`
	Comments     *string `json:"comments"`
}

// CreateProjectHandler handles POST /api/projects/new
func (h *Handler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req createProjectRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if err := validateCreateProject(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p := &models.Project{
		BidType: req.BidType,
		Name:    req.Name,
		Country: req.Country,
		Region:  req.Region,
		// New bids always start in the pipeline
		Status:   models.StatusOngoing,
		Comments: req.Comments,
	}
	if req.DateReceived != nil {
		d, err := time.Parse("2006-01-02", *req.DateReceived)
		if err != nil {
			http.Error(w, "Invalid dateReceived, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		p.DateReceived = &d
	}
	if req.DeadlineDate != nil {
		d, err := time.Parse("2006-01-02", *req.DeadlineDate)
		if err != nil {
			http.Error(w, "Invalid deadlineDate, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		p.DeadlineDate = &d
	}

	clientName := ""
	if req.ClientName != "" {
		client, err := h.Store.GetOrCreateClient(r.Context(), req.ClientName)
		if err != nil {
			http.Error(w, "Failed to resolve client", http.StatusInternalServerError)
			return
		}
		p.ClientID = &client.ID
		clientName = client.Name
	}

	p.InternalID = lifecycle.InternalID(p, clientName, false)

	if err := h.Store.CreateProject(r.Context(), p); err != nil {
		h.Log.Error("create project", zap.Error(err))
		http.Error(w, "Failed to create project", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(p)
}

// validateCreateProject checks the required fields and enumerations
func validateCreateProject(req *createProjectRequest) error {
	if req.Name == "" || len(req.Name) > 255 {
		return errors.New("name is required and max length 255")
	}
	if !contains(models.BidTypes, req.BidType) {
		return errors.New("invalid bidType")
	}
	if req.Country != "" && len(req.Country) != 2 {
		return errors.New("country must be an ISO 3166-1 alpha-2 code")
	}
	if req.Region != nil && !contains(models.Regions, *req.Region) {
		return errors.New("invalid region")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
