package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bidtrack/db"
	"bidtrack/internal/handlers"
	"bidtrack/internal/handlers/testutils"
	"bidtrack/models"
)

// MockStorage implements StorageInterface
type MockStorage struct {
	project        *models.Project
	projectClient  string
	financial      *models.Financial
	savedFinancial *models.Financial
	contract       *models.Contract
	savedContract  *models.Contract
	createErr      error

	transitionCalls int
	contractEnsured bool

	snapshots  []*models.Snapshot
	statusHist []*models.StatusHistory
	changeLog  []*models.ChangeLog

	attributed int
}

func (m *MockStorage) ListClients(ctx context.Context) ([]models.Client, error) {
	return []models.Client{{ID: 1, Name: "Petrobras"}}, nil
}

func (m *MockStorage) GetOrCreateClient(ctx context.Context, name string) (*models.Client, error) {
	return &models.Client{ID: 1, Name: name}, nil
}

func (m *MockStorage) CreateProject(ctx context.Context, p *models.Project) error {
	if m.createErr != nil {
		return m.createErr
	}
	p.ID = 42
	return nil
}

func (m *MockStorage) GetProject(ctx context.Context, id int) (*models.Project, error) {
	if m.project == nil {
		return nil, errors.New("not found")
	}
	return m.project, nil
}

func (m *MockStorage) GetProjectWithClient(ctx context.Context, id int) (*db.ProjectWithClient, error) {
	if m.project == nil {
		return nil, errors.New("not found")
	}
	return &db.ProjectWithClient{Project: *m.project, ClientName: m.projectClient}, nil
}

func (m *MockStorage) ListProjectsWithClients(ctx context.Context) ([]db.ProjectWithClient, error) {
	if m.project == nil {
		return nil, nil
	}
	return []db.ProjectWithClient{{Project: *m.project, ClientName: m.projectClient}}, nil
}

func (m *MockStorage) GetProjects(ctx context.Context, statuses []string, region string, limit, offset int) ([]models.Project, error) {
	return []models.Project{{ID: 1, Name: "Santos Basin OBN", Status: models.StatusOngoing}}, nil
}

func (m *MockStorage) UpdateProject(ctx context.Context, p *models.Project) error { return nil }

func (m *MockStorage) UpdateProjectTransition(ctx context.Context, p *models.Project, ensureContract bool) error {
	m.transitionCalls++
	if ensureContract {
		m.contractEnsured = true
	}
	return nil
}

func (m *MockStorage) GetFinancialByProject(ctx context.Context, projectID int) (*models.Financial, error) {
	return m.financial, nil
}

func (m *MockStorage) SaveFinancial(ctx context.Context, f *models.Financial) error {
	m.savedFinancial = f
	return nil
}

func (m *MockStorage) GetContractByProject(ctx context.Context, projectID int) (*models.Contract, error) {
	return m.contract, nil
}

func (m *MockStorage) UpdateContract(ctx context.Context, c *models.Contract) error {
	m.savedContract = c
	return nil
}

func (m *MockStorage) CreateCompetitor(ctx context.Context, c *models.Competitor) error {
	c.ID = 1
	return nil
}

func (m *MockStorage) GetCompetitorsByProject(ctx context.Context, projectID int) ([]models.Competitor, error) {
	name := "SHEARWATER"
	return []models.Competitor{{ID: 1, ProjectID: projectID, Name: &name}}, nil
}

func (m *MockStorage) CreateSnapshot(ctx context.Context, s *models.Snapshot) error {
	m.snapshots = append(m.snapshots, s)
	return nil
}

func (m *MockStorage) CreateBidTypeHistory(ctx context.Context, h *models.BidTypeHistory) error {
	return nil
}

func (m *MockStorage) CreateStatusHistory(ctx context.Context, h *models.StatusHistory) error {
	m.statusHist = append(m.statusHist, h)
	return nil
}

func (m *MockStorage) CreateChangeLog(ctx context.Context, c *models.ChangeLog) error {
	m.changeLog = append(m.changeLog, c)
	return nil
}

func (m *MockStorage) GetChangeLogByProject(ctx context.Context, projectID int, limit, offset int) ([]models.ChangeLog, error) {
	return []models.ChangeLog{{ID: 1, ProjectID: projectID, FieldName: "status"}}, nil
}

func (m *MockStorage) GetSnapshotsByProject(ctx context.Context, projectID int, limit, offset int) ([]models.Snapshot, error) {
	return []models.Snapshot{{ID: 1, ProjectID: projectID, ChangeType: models.ChangeStatus}}, nil
}

func (m *MockStorage) AttributeChangeLog(ctx context.Context, projectID int, fieldName, newValue, actor string) (int, error) {
	return m.attributed, nil
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func ongoingProject() *models.Project {
	return &models.Project{
		ID:      1,
		BidType: models.BidTypeRFP,
		Name:    "Santos Basin OBN",
		Country: "BR",
		Status:  models.StatusOngoing,
	}
}

func TestPingHandler(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	w := httptest.NewRecorder()

	handler.PingHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestCreateProjectHandler(t *testing.T) {
	mockStore := &MockStorage{}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	reqBody := `{
        "name": "Santos Basin OBN",
        "bidType": "RFP",
        "clientName": "Petrobras",
        "country": "BR",
        "region": "NSA",
        "dateReceived": "2025-01-10"
    }`
	req := httptest.NewRequest(http.MethodPost, "/api/projects/new", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.CreateProjectHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Santos Basin OBN")
	require.Contains(t, string(body), "202501-RFP-PETROBRAS-SAN-BR")
}

func TestCreateProjectHandlerRejectsBadBidType(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, zap.NewNop())

	reqBody := `{"name": "X", "bidType": "XYZ"}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects/new", strings.NewReader(reqBody))
	w := httptest.NewRecorder()

	handler.CreateProjectHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestGetProjectsHandler(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/projects?status=Ongoing&region=NSA", nil)
	w := httptest.NewRecorder()

	handler.GetProjectsHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Santos Basin OBN")
}

func TestGetProjectsHandlerRejectsBadRegion(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/projects?region=Atlantis", nil)
	w := httptest.NewRecorder()

	handler.GetProjectsHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestChangeProjectStatusHandler(t *testing.T) {
	mockStore := &MockStorage{project: ongoingProject(), projectClient: "Petrobras"}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	reqBody := `{"status": "Submitted", "actor": "reviewer"}`
	req := httptest.NewRequest(http.MethodPut, "/api/projects/1/status", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.ChangeProjectStatusHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Submitted")

	require.Equal(t, 1, mockStore.transitionCalls)
	require.Len(t, mockStore.snapshots, 1)
	require.Len(t, mockStore.statusHist, 1)
	require.Len(t, mockStore.changeLog, 1)
}

func TestChangeProjectStatusHandlerWonEnsuresContract(t *testing.T) {
	p := ongoingProject()
	p.Status = models.StatusSubmitted
	mockStore := &MockStorage{project: p, projectClient: "Petrobras"}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	reqBody := `{"status": "Won"}`
	req := httptest.NewRequest(http.MethodPut, "/api/projects/1/status", strings.NewReader(reqBody))
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.ChangeProjectStatusHandler(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	require.True(t, mockStore.contractEnsured)
}

func TestChangeProjectStatusHandlerRejectsBadStatus(t *testing.T) {
	mockStore := &MockStorage{project: ongoingProject()}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	reqBody := `{"status": "Maybe"}`
	req := httptest.NewRequest(http.MethodPut, "/api/projects/1/status", strings.NewReader(reqBody))
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.ChangeProjectStatusHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	require.Zero(t, mockStore.transitionCalls)
}

func TestSaveFinancialHandlerRecomputes(t *testing.T) {
	mockStore := &MockStorage{project: ongoingProject()}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	reqBody := `{"totalDirectCost": "100000", "gm": "20", "durationWithDt": "10"}`
	req := httptest.NewRequest(http.MethodPut, "/api/projects/1/financials", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.SaveFinancialHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	saved := mockStore.savedFinancial
	require.NotNil(t, saved)
	require.NotNil(t, saved.TotalRevenue)
	require.True(t, decimal.RequireFromString("125000.00").Equal(*saved.TotalRevenue))
	require.True(t, decimal.RequireFromString("-185000.00").Equal(*saved.EBITDAAmount))
}

func TestSaveFinancialHandlerIgnoresDerivedInput(t *testing.T) {
	mockStore := &MockStorage{project: ongoingProject()}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	// A client-supplied revenue must not survive the recompute.
	reqBody := `{"totalDirectCost": "100000", "gm": "20", "totalRevenue": "999999"}`
	req := httptest.NewRequest(http.MethodPut, "/api/projects/1/financials", strings.NewReader(reqBody))
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.SaveFinancialHandler(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	require.True(t, decimal.RequireFromString("125000.00").Equal(*mockStore.savedFinancial.TotalRevenue))
}

func TestGetFinancialHandlerNotFound(t *testing.T) {
	mockStore := &MockStorage{}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/projects/1/financials", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.GetFinancialHandler(w, req)

	require.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestGetChangeLogHandler(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/projects/1/changelog", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.GetChangeLogHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "status")
}

func TestAttributeChangeLogHandler(t *testing.T) {
	mockStore := &MockStorage{attributed: 1}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	reqBody := `{"fieldName": "status", "newValue": "Lost", "actor": "reviewer"}`
	req := httptest.NewRequest(http.MethodPut, "/api/projects/1/changelog/attribute", strings.NewReader(reqBody))
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.AttributeChangeLogHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "patched")
}

func TestAttributeChangeLogHandlerNoMatch(t *testing.T) {
	mockStore := &MockStorage{attributed: 0}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	reqBody := `{"fieldName": "status", "newValue": "Lost", "actor": "reviewer"}`
	req := httptest.NewRequest(http.MethodPut, "/api/projects/1/changelog/attribute", strings.NewReader(reqBody))
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.AttributeChangeLogHandler(w, req)

	require.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestGetContractHandlerNotFound(t *testing.T) {
	mockStore := &MockStorage{project: ongoingProject()}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/projects/1/contract", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.GetContractHandler(w, req)

	require.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestUpdateContractHandlerComputesDuration(t *testing.T) {
	mockStore := &MockStorage{
		project:  ongoingProject(),
		contract: &models.Contract{ID: 1, ProjectID: 1},
	}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	reqBody := `{"contractDate": "2025-06-01", "actualStart": "2025-07-01", "actualEnd": "2025-07-15"}`
	req := httptest.NewRequest(http.MethodPut, "/api/projects/1/contract", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.UpdateContractHandler(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	saved := mockStore.savedContract
	require.NotNil(t, saved)
	require.NotNil(t, saved.ContractDate)
	require.NotNil(t, saved.ActualDuration)
	require.Equal(t, 14, *saved.ActualDuration)
}

func TestUpdateContractHandlerClampsNegativeDuration(t *testing.T) {
	mockStore := &MockStorage{
		project:  ongoingProject(),
		contract: &models.Contract{ID: 1, ProjectID: 1},
	}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	reqBody := `{"actualStart": "2025-07-15", "actualEnd": "2025-07-01"}`
	req := httptest.NewRequest(http.MethodPut, "/api/projects/1/contract", strings.NewReader(reqBody))
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.UpdateContractHandler(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	require.NotNil(t, mockStore.savedContract.ActualDuration)
	require.Equal(t, 0, *mockStore.savedContract.ActualDuration)
}

func TestUpdateContractHandlerMissingBoundClearsDuration(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	stale := 99
	mockStore := &MockStorage{
		project: ongoingProject(),
		contract: &models.Contract{
			ID: 1, ProjectID: 1,
			ActualStart:    &start,
			ActualDuration: &stale,
		},
	}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	// No end date: the stale duration must not survive the save.
	reqBody := `{"actualStart": "2025-07-02"}`
	req := httptest.NewRequest(http.MethodPut, "/api/projects/1/contract", strings.NewReader(reqBody))
	req = testutils.WithChiURLParams(req, map[string]string{"projectId": "1"})
	w := httptest.NewRecorder()

	handler.UpdateContractHandler(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	require.Nil(t, mockStore.savedContract.ActualDuration)
}

func TestGetSummaryHandler(t *testing.T) {
	p := ongoingProject()
	p.Status = models.StatusWon
	mockStore := &MockStorage{
		project: p,
		financial: &models.Financial{
			ProjectID:    1,
			TotalRevenue: decPtr("125000.00"),
			EBITPct:      decPtr("12.00"),
		},
	}
	handler := handlers.NewHandler(mockStore, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/summary", nil)
	w := httptest.NewRecorder()

	handler.GetSummaryHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var summary struct {
		TotalProjects int            `json:"totalProjects"`
		StatusCounts  map[string]int `json:"statusCounts"`
		WonRevenue    string         `json:"wonRevenue"`
		MeanEBITPct   *float64       `json:"meanEbitPct"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&summary))
	require.Equal(t, 1, summary.TotalProjects)
	require.Equal(t, 1, summary.StatusCounts[models.StatusWon])
	require.NotNil(t, summary.MeanEBITPct)
	require.InDelta(t, 12.0, *summary.MeanEBITPct, 1e-9)
}
