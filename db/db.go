package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"bidtrack/models"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Client

func (s *Storage) ListClients(ctx context.Context) ([]models.Client, error) {
	clients := []models.Client{}
	query := `SELECT * FROM clients ORDER BY name ASC`
	err := s.db.SelectContext(ctx, &clients, query)
	return clients, err
}

func (s *Storage) GetOrCreateClient(ctx context.Context, name string) (*models.Client, error) {
	c := &models.Client{}
	query := `
        INSERT INTO clients (name)
        VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id, name`
	err := s.db.QueryRowContext(ctx, query, name).Scan(&c.ID, &c.Name)
	return c, err
}

// Project

// ProjectWithClient joins the project with its client name for resolution.
type ProjectWithClient struct {
	models.Project
	ClientName string `db:"client_name"`
}

func (s *Storage) CreateProject(ctx context.Context, p *models.Project) error {
	query := `
        INSERT INTO projects
            (internal_id, bid_type, client_id, name, country, region, date_received,
             status, submission_date, award_date, lost_date, deadline_date, comments)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id, created_at, updated_at`
	return s.db.QueryRowContext(ctx, query,
		p.InternalID, p.BidType, p.ClientID, p.Name, p.Country, p.Region, p.DateReceived,
		p.Status, p.SubmissionDate, p.AwardDate, p.LostDate, p.DeadlineDate, p.Comments).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (s *Storage) GetProject(ctx context.Context, id int) (*models.Project, error) {
	p := &models.Project{}
	query := `SELECT * FROM projects WHERE id=$1`
	err := s.db.GetContext(ctx, p, query, id)
	return p, err
}

func (s *Storage) GetProjectWithClient(ctx context.Context, id int) (*ProjectWithClient, error) {
	p := &ProjectWithClient{}
	query := `
        SELECT p.*, COALESCE(c.name, '') AS client_name
        FROM projects p
        LEFT JOIN clients c ON p.client_id = c.id
        WHERE p.id = $1`
	err := s.db.GetContext(ctx, p, query, id)
	return p, err
}

func (s *Storage) ListProjectsWithClients(ctx context.Context) ([]ProjectWithClient, error) {
	projects := []ProjectWithClient{}
	query := `
        SELECT p.*, COALESCE(c.name, '') AS client_name
        FROM projects p
        LEFT JOIN clients c ON p.client_id = c.id
        ORDER BY p.id ASC`
	err := s.db.SelectContext(ctx, &projects, query)
	return projects, err
}

func (s *Storage) GetProjects(ctx context.Context, statuses []string, region string, limit, offset int) ([]models.Project, error) {
	baseQuery := "SELECT * FROM projects"
	var args []interface{}
	var filters []string

	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, v := range statuses {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		filters = append(filters, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if region != "" {
		args = append(args, region)
		filters = append(filters, fmt.Sprintf("region = $%d", len(args)))
	}

	query := baseQuery
	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}
	query += " ORDER BY name ASC"
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	projects := []models.Project{}
	err := s.db.SelectContext(ctx, &projects, query, args...)
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *Storage) UpdateProject(ctx context.Context, p *models.Project) error {
	query := `
        UPDATE projects
        SET internal_id=$1, bid_type=$2, client_id=$3, name=$4, country=$5, region=$6,
            date_received=$7, status=$8, submission_date=$9, award_date=$10, lost_date=$11,
            deadline_date=$12, comments=$13, updated_at=NOW()
        WHERE id=$14`
	_, err := s.db.ExecContext(ctx, query,
		p.InternalID, p.BidType, p.ClientID, p.Name, p.Country, p.Region,
		p.DateReceived, p.Status, p.SubmissionDate, p.AwardDate, p.LostDate,
		p.DeadlineDate, p.Comments, p.ID)
	return err
}

// UpdateProjectTransition persists a lifecycle transition: the status, bid
// type, milestone dates and internal ID land together with the dependent
// contract row in one transaction.
func (s *Storage) UpdateProjectTransition(ctx context.Context, p *models.Project, ensureContract bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        UPDATE projects
        SET internal_id=$1, bid_type=$2, status=$3,
            submission_date=$4, award_date=$5, lost_date=$6, updated_at=NOW()
        WHERE id=$7`
	if _, err := tx.ExecContext(ctx, query,
		p.InternalID, p.BidType, p.Status,
		p.SubmissionDate, p.AwardDate, p.LostDate, p.ID); err != nil {
		return err
	}

	if ensureContract {
		contractQuery := `
            INSERT INTO project_contracts (project_id)
            VALUES ($1)
            ON CONFLICT (project_id) DO NOTHING`
		if _, err := tx.ExecContext(ctx, contractQuery, p.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Financial

func (s *Storage) GetFinancialByProject(ctx context.Context, projectID int) (*models.Financial, error) {
	f := &models.Financial{}
	query := `SELECT * FROM financials WHERE project_id=$1`
	err := s.db.GetContext(ctx, f, query, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

func (s *Storage) SaveFinancial(ctx context.Context, f *models.Financial) error {
	query := `
        INSERT INTO financials
            (project_id, total_direct_cost, gm, overhead_dayrate, duration_raw, duration_with_dt,
             depreciation, taxes, total_revenue, gp, total_overhead, ebitda_amount, ebitda_pct,
             ebit_amount, ebit_pct, net_amount, net_pct, ebit_day, net_day)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
        ON CONFLICT (project_id) DO UPDATE SET
            total_direct_cost=EXCLUDED.total_direct_cost, gm=EXCLUDED.gm,
            overhead_dayrate=EXCLUDED.overhead_dayrate, duration_raw=EXCLUDED.duration_raw,
            duration_with_dt=EXCLUDED.duration_with_dt, depreciation=EXCLUDED.depreciation,
            taxes=EXCLUDED.taxes, total_revenue=EXCLUDED.total_revenue, gp=EXCLUDED.gp,
            total_overhead=EXCLUDED.total_overhead, ebitda_amount=EXCLUDED.ebitda_amount,
            ebitda_pct=EXCLUDED.ebitda_pct, ebit_amount=EXCLUDED.ebit_amount,
            ebit_pct=EXCLUDED.ebit_pct, net_amount=EXCLUDED.net_amount, net_pct=EXCLUDED.net_pct,
            ebit_day=EXCLUDED.ebit_day, net_day=EXCLUDED.net_day
        RETURNING id`
	return s.db.QueryRowContext(ctx, query,
		f.ProjectID, f.TotalDirectCost, f.GM, f.OverheadDayrate, f.DurationRaw, f.DurationWithDT,
		f.Depreciation, f.Taxes, f.TotalRevenue, f.GP, f.TotalOverhead, f.EBITDAAmount, f.EBITDAPct,
		f.EBITAmount, f.EBITPct, f.NetAmount, f.NetPct, f.EBITDay, f.NetDay).
		Scan(&f.ID)
}

// Contract

func (s *Storage) GetContractByProject(ctx context.Context, projectID int) (*models.Contract, error) {
	c := &models.Contract{}
	query := `SELECT * FROM project_contracts WHERE project_id=$1`
	err := s.db.GetContext(ctx, c, query, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (s *Storage) UpdateContract(ctx context.Context, c *models.Contract) error {
	query := `
        UPDATE project_contracts
        SET contract_date=$1, actual_start=$2, actual_end=$3, actual_duration=$4
        WHERE id=$5`
	_, err := s.db.ExecContext(ctx, query,
		c.ContractDate, c.ActualStart, c.ActualEnd, c.ActualDuration, c.ID)
	return err
}

// Competitor

func (s *Storage) CreateCompetitor(ctx context.Context, c *models.Competitor) error {
	query := `
        INSERT INTO competitors (project_id, name, notes, created_by)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, c.ProjectID, c.Name, c.Notes, c.CreatedBy).
		Scan(&c.ID, &c.CreatedAt)
}

// EnsureCompetitor records the winning competitor for a lost project once;
// repeated imports never duplicate the row.
func (s *Storage) EnsureCompetitor(ctx context.Context, projectID int, name string) error {
	query := `
        INSERT INTO competitors (project_id, name)
        SELECT $1, $2
        WHERE NOT EXISTS (SELECT 1 FROM competitors WHERE project_id = $1)`
	_, err := s.db.ExecContext(ctx, query, projectID, name)
	return err
}

func (s *Storage) GetCompetitorsByProject(ctx context.Context, projectID int) ([]models.Competitor, error) {
	var competitors []models.Competitor
	query := `SELECT * FROM competitors WHERE project_id=$1 ORDER BY created_at DESC`
	err := s.db.SelectContext(ctx, &competitors, query, projectID)
	return competitors, err
}

// Technology

func (s *Storage) GetTechnologyByProject(ctx context.Context, projectID int) (*models.ProjectTechnology, error) {
	t := &models.ProjectTechnology{}
	query := `SELECT * FROM project_technologies WHERE project_id=$1 ORDER BY id ASC LIMIT 1`
	err := s.db.GetContext(ctx, t, query, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (s *Storage) CreateTechnology(ctx context.Context, t *models.ProjectTechnology) error {
	query := `
        INSERT INTO project_technologies
            (project_id, technology, survey_type, obn_technique, obn_system, streamer)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`
	return s.db.QueryRowContext(ctx, query,
		t.ProjectID, t.Technology, t.SurveyType, t.OBNTechnique, t.OBNSystem, t.Streamer).
		Scan(&t.ID)
}

func (s *Storage) UpdateTechnology(ctx context.Context, t *models.ProjectTechnology) error {
	query := `
        UPDATE project_technologies
        SET technology=$1, survey_type=$2, obn_technique=$3, obn_system=$4, streamer=$5
        WHERE id=$6`
	_, err := s.db.ExecContext(ctx, query,
		t.Technology, t.SurveyType, t.OBNTechnique, t.OBNSystem, t.Streamer, t.ID)
	return err
}

// ScopeOfWork

func (s *Storage) GetScopeByProject(ctx context.Context, projectID int) (*models.ScopeOfWork, error) {
	sc := &models.ScopeOfWork{}
	query := `SELECT * FROM scope_of_work WHERE project_id=$1 ORDER BY id ASC LIMIT 1`
	err := s.db.GetContext(ctx, sc, query, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sc, err
}

func (s *Storage) CreateScope(ctx context.Context, sc *models.ScopeOfWork) error {
	query := `
        INSERT INTO scope_of_work
            (project_id, total_rx_locs, total_sx_locs, crew_node_count,
             water_depth_min, water_depth_max, node_category)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id`
	return s.db.QueryRowContext(ctx, query,
		sc.ProjectID, sc.TotalRxLocs, sc.TotalSxLocs, sc.CrewNodeCount,
		sc.WaterDepthMin, sc.WaterDepthMax, sc.NodeCategory).
		Scan(&sc.ID)
}

func (s *Storage) UpdateScope(ctx context.Context, sc *models.ScopeOfWork) error {
	query := `
        UPDATE scope_of_work
        SET total_rx_locs=$1, total_sx_locs=$2, crew_node_count=$3,
            water_depth_min=$4, water_depth_max=$5, node_category=$6
        WHERE id=$7`
	_, err := s.db.ExecContext(ctx, query,
		sc.TotalRxLocs, sc.TotalSxLocs, sc.CrewNodeCount,
		sc.WaterDepthMin, sc.WaterDepthMax, sc.NodeCategory, sc.ID)
	return err
}

// Audit trail (append-only)

func (s *Storage) CreateSnapshot(ctx context.Context, snap *models.Snapshot) error {
	query := `
        INSERT INTO project_snapshots (project_id, change_type, snapshot, snapshot_name, created_by, notes)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query,
		snap.ProjectID, snap.ChangeType, snap.Snapshot, snap.SnapshotName, snap.CreatedBy, snap.Notes).
		Scan(&snap.ID, &snap.CreatedAt)
}

func (s *Storage) CreateBidTypeHistory(ctx context.Context, h *models.BidTypeHistory) error {
	query := `
        INSERT INTO bid_type_history (project_id, previous_bid_type, new_bid_type, notes)
        VALUES ($1, $2, $3, $4)
        RETURNING id, changed_at`
	return s.db.QueryRowContext(ctx, query,
		h.ProjectID, h.PreviousBidType, h.NewBidType, h.Notes).
		Scan(&h.ID, &h.ChangedAt)
}

func (s *Storage) CreateStatusHistory(ctx context.Context, h *models.StatusHistory) error {
	query := `
        INSERT INTO project_status_history (project_id, previous_status, new_status, notes)
        VALUES ($1, $2, $3, $4)
        RETURNING id, changed_at`
	return s.db.QueryRowContext(ctx, query,
		h.ProjectID, h.PreviousStatus, h.NewStatus, h.Notes).
		Scan(&h.ID, &h.ChangedAt)
}

func (s *Storage) CreateChangeLog(ctx context.Context, c *models.ChangeLog) error {
	query := `
        INSERT INTO change_log
            (project_id, change_type, field_name, previous_value, new_value, event_date, changed_by, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, changed_at`
	return s.db.QueryRowContext(ctx, query,
		c.ProjectID, c.ChangeType, c.FieldName, c.PreviousValue, c.NewValue,
		c.EventDate, c.ChangedBy, c.Notes).
		Scan(&c.ID, &c.ChangedAt)
}

func (s *Storage) GetChangeLogByProject(ctx context.Context, projectID int, limit, offset int) ([]models.ChangeLog, error) {
	entries := []models.ChangeLog{}
	query := `
        SELECT * FROM change_log
        WHERE project_id=$1
        ORDER BY changed_at DESC
        LIMIT $2 OFFSET $3`
	err := s.db.SelectContext(ctx, &entries, query, projectID, limit, offset)
	return entries, err
}

func (s *Storage) GetSnapshotsByProject(ctx context.Context, projectID int, limit, offset int) ([]models.Snapshot, error) {
	snaps := []models.Snapshot{}
	query := `
        SELECT * FROM project_snapshots
        WHERE project_id=$1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	err := s.db.SelectContext(ctx, &snaps, query, projectID, limit, offset)
	return snaps, err
}

// AttributeChangeLog patches the actor onto the most recent unattributed
// changelog entry matching (project, field, new value). Returns the number of
// rows patched (0 when nothing matched).
func (s *Storage) AttributeChangeLog(ctx context.Context, projectID int, fieldName, newValue, actor string) (int, error) {
	query := `
        UPDATE change_log
        SET changed_by = $4
        WHERE id = (
            SELECT id FROM change_log
            WHERE project_id = $1 AND field_name = $2 AND new_value = $3 AND changed_by IS NULL
            ORDER BY changed_at DESC
            LIMIT 1
        )`
	res, err := s.db.ExecContext(ctx, query, projectID, fieldName, newValue, actor)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
