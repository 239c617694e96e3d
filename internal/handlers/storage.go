package handlers

import (
	"context"

	"bidtrack/db"
	"bidtrack/models"
)

type StorageInterface interface {
	ListClients(ctx context.Context) ([]models.Client, error)
	GetOrCreateClient(ctx context.Context, name string) (*models.Client, error)

	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id int) (*models.Project, error)
	GetProjectWithClient(ctx context.Context, id int) (*db.ProjectWithClient, error)
	ListProjectsWithClients(ctx context.Context) ([]db.ProjectWithClient, error)
	GetProjects(ctx context.Context, statuses []string, region string, limit, offset int) ([]models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	UpdateProjectTransition(ctx context.Context, p *models.Project, ensureContract bool) error

	GetFinancialByProject(ctx context.Context, projectID int) (*models.Financial, error)
	SaveFinancial(ctx context.Context, f *models.Financial) error

	GetContractByProject(ctx context.Context, projectID int) (*models.Contract, error)
	UpdateContract(ctx context.Context, c *models.Contract) error

	CreateCompetitor(ctx context.Context, c *models.Competitor) error
	GetCompetitorsByProject(ctx context.Context, projectID int) ([]models.Competitor, error)

	CreateSnapshot(ctx context.Context, s *models.Snapshot) error
	CreateBidTypeHistory(ctx context.Context, h *models.BidTypeHistory) error
	CreateStatusHistory(ctx context.Context, h *models.StatusHistory) error
	CreateChangeLog(ctx context.Context, c *models.ChangeLog) error
	GetChangeLogByProject(ctx context.Context, projectID int, limit, offset int) ([]models.ChangeLog, error)
	GetSnapshotsByProject(ctx context.Context, projectID int, limit, offset int) ([]models.Snapshot, error)
	AttributeChangeLog(ctx context.Context, projectID int, fieldName, newValue, actor string) (int, error)
}
