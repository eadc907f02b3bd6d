package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	"github.com/smallbiznis/lingoflow/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, kind Kind, req CreateRequest) (*Response, error)
	Get(ctx context.Context, kind Kind, id string) (*Response, error)
	List(ctx context.Context, kind Kind, req ListRequest) (*ListResponse, error)
	Delete(ctx context.Context, kind Kind, id string) error
}

type CreateRequest struct {
	Name  string `json:"name" binding:"required,max=255"`
	Email string `json:"email" binding:"omitempty,email"`
}

type ListRequest struct {
	pagination.Pagination
}

type Response struct {
	ID        snowflake.ID `json:"id"`
	Kind      Kind         `json:"kind"`
	Name      string       `json:"name"`
	Email     string       `json:"email,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type ListResponse struct {
	Items    []Response          `json:"items"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidKind         = apperr.Invalid("kind", "invalid_party_kind")
	ErrInvalidDimension    = apperr.Invalid("dimension", "invalid_dimension")
	ErrInvalidOrganization = apperr.New("invalid_organization", apperr.ErrUnauthorized)
	ErrInvalidID           = apperr.Invalid("id", "invalid_id")
	ErrInvalidName         = apperr.Invalid("name", "invalid_name")
	ErrForbidden           = apperr.New("party_forbidden", apperr.ErrForbidden)
	ErrInUse               = apperr.New("party_in_use", apperr.ErrConflict)
)

// NotFound reports a missing party named by its kind, e.g. vendor_not_found.
func NotFound(kind Kind) error {
	return apperr.NotFound(string(kind))
}
