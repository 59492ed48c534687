package domain

type AccountStatus string

const (
	AccountDraft  AccountStatus = "draft"
	AccountActive AccountStatus = "active"
	AccountClosed AccountStatus = "closed"
)

type MeasurementMethod string

const (
	MeasurePercentComplete MeasurementMethod = "percent_complete"
	MeasureMilestone       MeasurementMethod = "milestone"
	MeasureLevelOfEffort   MeasurementMethod = "level_of_effort"
)

// ValidMeasurementMethods is the canonical set of accepted method strings.
var ValidMeasurementMethods = map[string]bool{
	"percent_complete": true, "milestone": true, "level_of_effort": true,
}

type RevisionStatus string

const (
	RevisionDraft     RevisionStatus = "draft"
	RevisionSubmitted RevisionStatus = "submitted"
	RevisionApproved  RevisionStatus = "approved"
	RevisionBaselined RevisionStatus = "baselined"
	RevisionArchived  RevisionStatus = "archived"
)

type CommitmentStatus string

const (
	CommitmentDraft    CommitmentStatus = "draft"
	CommitmentApproved CommitmentStatus = "approved"
	CommitmentActive   CommitmentStatus = "active"
	CommitmentClosed   CommitmentStatus = "closed"
)

type InvoiceStatus string

const (
	InvoiceSubmitted InvoiceStatus = "submitted"
	InvoiceReviewed  InvoiceStatus = "reviewed"
	InvoiceApproved  InvoiceStatus = "approved"
	InvoiceRejected  InvoiceStatus = "rejected"
	InvoicePaid      InvoiceStatus = "paid"
)

// ForecastMethod selects the EAC formula used for a control account.
type ForecastMethod string

const (
	ForecastActualPlusRemaining ForecastMethod = "actual_plus_remaining"
	ForecastCPIAdjusted         ForecastMethod = "cpi_adjusted"
	ForecastCPITimesSPIAdjusted ForecastMethod = "cpi_times_spi_adjusted"
)

// ValidForecastMethods is the canonical set of accepted forecast method strings.
var ValidForecastMethods = map[string]bool{
	"actual_plus_remaining": true, "cpi_adjusted": true, "cpi_times_spi_adjusted": true,
}
