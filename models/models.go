package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid type codes
const (
	BidTypeRFQ = "RFQ" // Request for Quotation
	BidTypeRFP = "RFP" // Request for Proposal
	BidTypeRFI = "RFI" // Request for Information
	BidTypeMC  = "MC"  // Multi-Client
	BidTypeDR  = "DR"  // Direct Award
	BidTypeBQ  = "BQ"  // Budgetary Quotation
)

// Project statuses
const (
	StatusOngoing   = "Ongoing"
	StatusSubmitted = "Submitted"
	StatusWon       = "Won"
	StatusLost      = "Lost"
	StatusCancelled = "Cancelled"
	StatusNoBid     = "No Bid"
)

var BidTypes = []string{BidTypeRFQ, BidTypeRFP, BidTypeRFI, BidTypeMC, BidTypeDR, BidTypeBQ}

var Statuses = []string{StatusOngoing, StatusSubmitted, StatusWon, StatusLost, StatusCancelled, StatusNoBid}

var Regions = []string{"NSA", "AMME", "Asia", "Australasia", "Europe", "Global"}

// Short status codes used in the internal ID.
var StatusCodes = map[string]string{
	StatusOngoing:   "ONG",
	StatusSubmitted: "SUB",
	StatusWon:       "WON",
	StatusLost:      "LST",
	StatusCancelled: "CXL",
	StatusNoBid:     "NBD",
}

// Change categories for snapshots and the changelog.
const (
	ChangeStatus = "STATUS"
	ChangeBid    = "BID"
)

// Client, deduplicated by name
type Client struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name" validate:"required,max=255"`
}

// Project is a tracked sales bid for a marine survey.
type Project struct {
	ID             int        `db:"id" json:"id"`
	InternalID     string     `db:"internal_id" json:"internalId"`
	BidType        string     `db:"bid_type" json:"bidType" validate:"required,oneof=RFQ RFP RFI MC DR BQ"`
	ClientID       *int       `db:"client_id" json:"clientId"`
	Name           string     `db:"name" json:"name" validate:"required,max=255"`
	Country        string     `db:"country" json:"country"`
	Region         *string    `db:"region" json:"region"`
	DateReceived   *time.Time `db:"date_received" json:"dateReceived"`
	Status         string     `db:"status" json:"status"`
	SubmissionDate *time.Time `db:"submission_date" json:"submissionDate"`
	AwardDate      *time.Time `db:"award_date" json:"awardDate"`
	LostDate       *time.Time `db:"lost_date" json:"lostDate"`
	DeadlineDate   *time.Time `db:"deadline_date" json:"deadlineDate"`
	Comments       *string    `db:"comments" json:"comments"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"-"`
}

// Financial holds the P&L for a project. Derived columns are recomputed from
// the inputs on every save, never hand-entered.
type Financial struct {
	ID        int `db:"id" json:"id"`
	ProjectID int `db:"project_id" json:"projectId"`

	// Inputs
	TotalDirectCost *decimal.Decimal `db:"total_direct_cost" json:"totalDirectCost"`
	GM              *decimal.Decimal `db:"gm" json:"gm"` // gross margin, percent
	OverheadDayrate *decimal.Decimal `db:"overhead_dayrate" json:"overheadDayrate"`
	DurationRaw     *decimal.Decimal `db:"duration_raw" json:"durationRaw"`
	DurationWithDT  *decimal.Decimal `db:"duration_with_dt" json:"durationWithDt"`
	Depreciation    *decimal.Decimal `db:"depreciation" json:"depreciation"`
	Taxes           *decimal.Decimal `db:"taxes" json:"taxes"`

	// Derived
	TotalRevenue  *decimal.Decimal `db:"total_revenue" json:"totalRevenue"`
	GP            *decimal.Decimal `db:"gp" json:"gp"`
	TotalOverhead *decimal.Decimal `db:"total_overhead" json:"totalOverhead"`
	EBITDAAmount  *decimal.Decimal `db:"ebitda_amount" json:"ebitdaAmount"`
	EBITDAPct     *decimal.Decimal `db:"ebitda_pct" json:"ebitdaPct"`
	EBITAmount    *decimal.Decimal `db:"ebit_amount" json:"ebitAmount"`
	EBITPct       *decimal.Decimal `db:"ebit_pct" json:"ebitPct"`
	NetAmount     *decimal.Decimal `db:"net_amount" json:"netAmount"`
	NetPct        *decimal.Decimal `db:"net_pct" json:"netPct"`
	EBITDay       *decimal.Decimal `db:"ebit_day" json:"ebitDay"`
	NetDay        *decimal.Decimal `db:"net_day" json:"netDay"`
}

// Contract details for a Won project, created automatically on the first
// transition into Won.
type Contract struct {
	ID             int        `db:"id" json:"id"`
	ProjectID      int        `db:"project_id" json:"projectId"`
	ContractDate   *time.Time `db:"contract_date" json:"contractDate"`
	ActualStart    *time.Time `db:"actual_start" json:"actualStart"`
	ActualEnd      *time.Time `db:"actual_end" json:"actualEnd"`
	ActualDuration *int       `db:"actual_duration" json:"actualDuration"`
}

// Known competitor identities, meaningful when a project is Lost.
var CompetitorChoices = []struct {
	Code  string
	Label string
}{
	{"SAE", "SAE"},
	{"PXGEO", "PXGEO"},
	{"VIRIDIEN", "Viridien"},
	{"SLB", "SLB"},
	{"SHEARWATER", "Shearwater"},
	{"BGP", "BGP"},
	{"COSL", "COSL"},
}

type Competitor struct {
	ID        int       `db:"id" json:"id"`
	ProjectID int       `db:"project_id" json:"projectId"`
	Name      *string   `db:"name" json:"name"`
	Notes     *string   `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	CreatedBy *string   `db:"created_by" json:"createdBy"`
}

// BidTypeHistory is the append-only timeline of bid_type transitions.
type BidTypeHistory struct {
	ID              int       `db:"id" json:"id"`
	ProjectID       int       `db:"project_id" json:"projectId"`
	PreviousBidType *string   `db:"previous_bid_type" json:"previousBidType"`
	NewBidType      string    `db:"new_bid_type" json:"newBidType"`
	ChangedAt       time.Time `db:"changed_at" json:"changedAt"`
	Notes           *string   `db:"notes" json:"notes"`
}

// StatusHistory is the append-only timeline of status transitions.
type StatusHistory struct {
	ID             int       `db:"id" json:"id"`
	ProjectID      int       `db:"project_id" json:"projectId"`
	PreviousStatus *string   `db:"previous_status" json:"previousStatus"`
	NewStatus      string    `db:"new_status" json:"newStatus"`
	ChangedAt      time.Time `db:"changed_at" json:"changedAt"`
	Notes          *string   `db:"notes" json:"notes"`
}

// Snapshot stores the full pre-change state of a project as JSON.
type Snapshot struct {
	ID           int       `db:"id" json:"id"`
	ProjectID    int       `db:"project_id" json:"projectId"`
	ChangeType   string    `db:"change_type" json:"changeType"`
	Snapshot     []byte    `db:"snapshot" json:"snapshot"`
	SnapshotName *string   `db:"snapshot_name" json:"snapshotName"` // previous internal_id or name
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	CreatedBy    *string   `db:"created_by" json:"createdBy"`
	Notes        *string   `db:"notes" json:"notes"`
}

// ChangeLog is the unified timeline of status and bid_type transitions.
type ChangeLog struct {
	ID            int        `db:"id" json:"id"`
	ProjectID     int        `db:"project_id" json:"projectId"`
	ChangeType    string     `db:"change_type" json:"changeType"`
	FieldName     string     `db:"field_name" json:"fieldName"`
	PreviousValue *string    `db:"previous_value" json:"previousValue"`
	NewValue      *string    `db:"new_value" json:"newValue"`
	EventDate     *time.Time `db:"event_date" json:"eventDate"`
	ChangedAt     time.Time  `db:"changed_at" json:"changedAt"`
	ChangedBy     *string    `db:"changed_by" json:"changedBy"`
	Notes         *string    `db:"notes" json:"notes"`
}

// Technology values
const (
	TechnologyStreamer = "STR"
	TechnologyOBN      = "OBN"
	TechnologyOther    = "OTHER"
)

// ProjectTechnology describes the acquisition technology bid for a project.
type ProjectTechnology struct {
	ID           int     `db:"id" json:"id"`
	ProjectID    int     `db:"project_id" json:"projectId"`
	Technology   string  `db:"technology" json:"technology"`
	SurveyType   string  `db:"survey_type" json:"surveyType"`
	OBNTechnique *string `db:"obn_technique" json:"obnTechnique"`
	OBNSystem    *string `db:"obn_system" json:"obnSystem"`
	Streamer     *string `db:"streamer" json:"streamer"`
}

// ScopeOfWork holds the geophysical parameters of a bid.
type ScopeOfWork struct {
	ID            int     `db:"id" json:"id"`
	ProjectID     int     `db:"project_id" json:"projectId"`
	TotalRxLocs   *int    `db:"total_rx_locs" json:"totalRxLocs"`
	TotalSxLocs   *int    `db:"total_sx_locs" json:"totalSxLocs"`
	CrewNodeCount *int    `db:"crew_node_count" json:"crewNodeCount"`
	WaterDepthMin *int    `db:"water_depth_min" json:"waterDepthMin"`
	WaterDepthMax *int    `db:"water_depth_max" json:"waterDepthMax"`
	NodeCategory  *string `db:"node_category" json:"nodeCategory"`
}
