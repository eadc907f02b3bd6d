package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	"github.com/smallbiznis/lingoflow/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, kind partydomain.Kind, req CreateRequest) (*Response, error)
	Get(ctx context.Context, kind partydomain.Kind, id string) (*Response, error)
	List(ctx context.Context, kind partydomain.Kind, req ListRequest) (*ListResponse, error)
	Update(ctx context.Context, kind partydomain.Kind, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, kind partydomain.Kind, id string) error
	// Match finds the rows of one party for a job's combination. Read only.
	Match(ctx context.Context, kind partydomain.Kind, req MatchRequest) ([]Response, error)
}

type CreateRequest struct {
	PartyID          string           `json:"party_id" binding:"required"`
	ServiceID        string           `json:"service_id" binding:"required"`
	LanguagePairID   string           `json:"language_pair_id" binding:"required"`
	SpecializationID string           `json:"specialization_id" binding:"required"`
	UnitID           string           `json:"unit_id" binding:"required"`
	CurrencyID       string           `json:"currency_id" binding:"required"`
	PricePerUnit     *decimal.Decimal `json:"price_per_unit" binding:"required"`
	Note             string           `json:"note" binding:"max=2000"`
}

// UpdateRequest changes only the fields that are set. The party is fixed.
type UpdateRequest struct {
	ServiceID        *string          `json:"service_id"`
	LanguagePairID   *string          `json:"language_pair_id"`
	SpecializationID *string          `json:"specialization_id"`
	UnitID           *string          `json:"unit_id"`
	CurrencyID       *string          `json:"currency_id"`
	PricePerUnit     *decimal.Decimal `json:"price_per_unit"`
	Note             *string          `json:"note" binding:"omitempty,max=2000"`
}

type ListRequest struct {
	pagination.Pagination
	PartyID          string `form:"party_id"`
	ServiceID        string `form:"service_id"`
	LanguagePairID   string `form:"language_pair_id"`
	SpecializationID string `form:"specialization_id"`
}

type MatchRequest struct {
	PartyID          snowflake.ID
	ServiceID        snowflake.ID
	LanguagePairID   snowflake.ID
	SpecializationID snowflake.ID
	UnitID           snowflake.ID
	CurrencyID       snowflake.ID
}

type Response struct {
	ID                 snowflake.ID     `json:"id"`
	Kind               partydomain.Kind `json:"kind"`
	PartyID            snowflake.ID     `json:"party_id"`
	ServiceID          snowflake.ID     `json:"service_id"`
	ServiceName        string           `json:"service_name"`
	LanguagePairID     snowflake.ID     `json:"language_pair_id"`
	LanguagePair       string           `json:"language_pair"`
	SpecializationID   snowflake.ID     `json:"specialization_id"`
	SpecializationName string           `json:"specialization_name"`
	UnitID             snowflake.ID     `json:"unit_id"`
	UnitName           string           `json:"unit_name"`
	CurrencyID         snowflake.ID     `json:"currency_id"`
	CurrencyCode       string           `json:"currency_code"`
	PricePerUnit       decimal.Decimal  `json:"price_per_unit"`
	Note               string           `json:"note,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type ListResponse struct {
	Items    []Response          `json:"items"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidOrganization = apperr.New("invalid_organization", apperr.ErrUnauthorized)
	ErrInvalidID           = apperr.Invalid("id", "invalid_id")
	ErrInvalidPrice        = apperr.Invalid("price_per_unit", "invalid_price_per_unit")
	ErrEmptyUpdate         = apperr.Invalid("body", "empty_update")
	ErrNotFound            = apperr.NotFound("price_list")
	ErrForbidden           = apperr.New("price_list_forbidden", apperr.ErrForbidden)
	ErrDuplicate           = apperr.New("price_list_exists", apperr.ErrDuplicateEntry)
)

// InvalidField reports a malformed identifier in the named request field.
func InvalidField(field string) error {
	return apperr.Invalid(field, "invalid_"+field)
}
