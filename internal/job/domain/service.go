package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	pricelistdomain "github.com/smallbiznis/lingoflow/internal/pricelist/domain"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Delete(ctx context.Context, id string) error
}

// LedgerService manages the financial lines of jobs. Every call is bound to
// one direction and line kind so each route serves exactly one variant.
type LedgerService interface {
	CreateLine(ctx context.Context, direction Direction, kind LineKind, req LineRequest) (*LineResponse, error)
	GetLine(ctx context.Context, direction Direction, kind LineKind, id string) (*LineResponse, error)
	ListLines(ctx context.Context, direction Direction, kind LineKind, jobID string) ([]LineResponse, error)
	UpdateLine(ctx context.Context, direction Direction, kind LineKind, id string, req LineRequest) (*LineResponse, error)
	DeleteLine(ctx context.Context, direction Direction, kind LineKind, id string) error

	// Suggest returns the price list rows of the job's party that match the
	// job. It never writes.
	Suggest(ctx context.Context, direction Direction, jobID string) ([]pricelistdomain.Response, error)
	Summary(ctx context.Context, jobID string) (*SummaryResponse, error)
}

type CreateRequest struct {
	ProjectID        string `json:"project_id" binding:"required"`
	VendorID         string `json:"vendor_id"`
	ServiceID        string `json:"service_id" binding:"required"`
	LanguagePairID   string `json:"language_pair_id" binding:"required"`
	SpecializationID string `json:"specialization_id" binding:"required"`
	Name             string `json:"name" binding:"required,max=255"`
}

type ListRequest struct {
	ProjectID string `form:"project_id" binding:"required"`
}

type Response struct {
	ID               snowflake.ID  `json:"id"`
	ProjectID        snowflake.ID  `json:"project_id"`
	VendorID         *snowflake.ID `json:"vendor_id,omitempty"`
	ServiceID        snowflake.ID  `json:"service_id"`
	LanguagePairID   snowflake.ID  `json:"language_pair_id"`
	SpecializationID snowflake.ID  `json:"specialization_id"`
	Name             string        `json:"name"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// LineRequest serves create and update. On update only set fields change and
// job_id is ignored. Subtotal is read only for flat rate lines.
type LineRequest struct {
	JobID        string           `json:"job_id"`
	UnitID       *string          `json:"unit_id"`
	UnitAmount   *decimal.Decimal `json:"unit_amount"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit"`
	Subtotal     *decimal.Decimal `json:"subtotal"`
	CurrencyID   *string          `json:"currency_id"`
	FileID       *string          `json:"file_id" binding:"omitempty,max=255"`
	PriceListID  *string          `json:"price_list_id"`
	Note         *string          `json:"note" binding:"omitempty,max=2000"`
}

type LineResponse struct {
	ID           snowflake.ID     `json:"id"`
	JobID        snowflake.ID     `json:"job_id"`
	Direction    Direction        `json:"direction"`
	Kind         LineKind         `json:"kind"`
	UnitID       *snowflake.ID    `json:"unit_id,omitempty"`
	UnitName     string           `json:"unit_name,omitempty"`
	UnitAmount   *decimal.Decimal `json:"unit_amount,omitempty"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit,omitempty"`
	Subtotal     string           `json:"subtotal"`
	CurrencyID   snowflake.ID     `json:"currency_id"`
	CurrencyCode string           `json:"currency_code"`
	FileID       *string          `json:"file_id,omitempty"`
	PriceListID  *snowflake.ID    `json:"price_list_id,omitempty"`
	Note         string           `json:"note,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type CurrencyTotal struct {
	CurrencyID   snowflake.ID `json:"currency_id"`
	CurrencyCode string       `json:"currency_code"`
	Receivable   string       `json:"receivable"`
	Payable      string       `json:"payable"`
	Margin       string       `json:"margin"`
}

type SummaryResponse struct {
	JobID  snowflake.ID    `json:"job_id"`
	Totals []CurrencyTotal `json:"totals"`
}

var (
	ErrInvalidOrganization = apperr.New("invalid_organization", apperr.ErrUnauthorized)
	ErrInvalidID           = apperr.Invalid("id", "invalid_id")
	ErrInvalidDirection    = apperr.Invalid("direction", "invalid_direction")
	ErrInvalidName         = apperr.Invalid("name", "invalid_name")
	ErrUnitRequired        = apperr.Invalid("unit_id", "unit_required")
	ErrInvalidUnitAmount   = apperr.Invalid("unit_amount", "unit_amount_must_be_positive")
	ErrInvalidPrice        = apperr.Invalid("price_per_unit", "invalid_price_per_unit")
	ErrInvalidSubtotal     = apperr.Invalid("subtotal", "invalid_subtotal")
	ErrUnitFieldsNotFlat   = apperr.Invalid("unit_id", "unit_fields_not_allowed")
	ErrCurrencyRequired    = apperr.Invalid("currency_id", "currency_required")
	ErrEmptyUpdate         = apperr.Invalid("body", "empty_update")
	ErrNotFound            = apperr.NotFound("job")
	ErrLineNotFound        = apperr.NotFound("financial_line")
	ErrForbidden           = apperr.New("job_forbidden", apperr.ErrForbidden)
)

func InvalidField(field string) error {
	return apperr.Invalid(field, "invalid_"+field)
}
