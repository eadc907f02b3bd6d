package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	"github.com/smallbiznis/lingoflow/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	History(ctx context.Context, id string) ([]HistoryResponse, error)
}

type CreateRequest struct {
	ClientID         string         `json:"client_id" binding:"required"`
	ProjectManagerID string         `json:"project_manager_id" binding:"required"`
	AccountManagerID string         `json:"account_manager_id"`
	ServiceID        string         `json:"service_id" binding:"required"`
	SpecializationID string         `json:"specialization_id" binding:"required"`
	LanguagePairIDs  []string       `json:"language_pair_ids" binding:"required,min=1,dive,required"`
	Name             string         `json:"name" binding:"required,max=255"`
	Code             string         `json:"code" binding:"omitempty,max=100"`
	Status           Status         `json:"status" binding:"required"`
	StatusComment    string         `json:"status_comment" binding:"max=2000"`
	StartDate        *time.Time     `json:"start_date"`
	Deadline         *time.Time     `json:"deadline"`
	Metadata         map[string]any `json:"metadata"`
}

// UpdateRequest changes only the fields that are set. A non-nil
// LanguagePairIDs replaces the whole association set.
type UpdateRequest struct {
	ClientID         *string        `json:"client_id"`
	ProjectManagerID *string        `json:"project_manager_id"`
	AccountManagerID *string        `json:"account_manager_id"`
	ServiceID        *string        `json:"service_id"`
	SpecializationID *string        `json:"specialization_id"`
	LanguagePairIDs  []string       `json:"language_pair_ids" binding:"omitempty,min=1,dive,required"`
	Name             *string        `json:"name" binding:"omitempty,min=1,max=255"`
	Code             *string        `json:"code" binding:"omitempty,max=100"`
	Status           *Status        `json:"status"`
	StatusComment    string         `json:"status_comment" binding:"max=2000"`
	StartDate        *time.Time     `json:"start_date"`
	Deadline         *time.Time     `json:"deadline"`
	Metadata         map[string]any `json:"metadata"`
}

type ListRequest struct {
	pagination.Pagination
	ClientID string `form:"client_id"`
	Status   string `form:"status"`
}

type Response struct {
	ID               snowflake.ID   `json:"id"`
	ClientID         snowflake.ID   `json:"client_id"`
	ProjectManagerID snowflake.ID   `json:"project_manager_id"`
	AccountManagerID *snowflake.ID  `json:"account_manager_id,omitempty"`
	ServiceID        snowflake.ID   `json:"service_id"`
	SpecializationID snowflake.ID   `json:"specialization_id"`
	LanguagePairIDs  []snowflake.ID `json:"language_pair_ids"`
	Name             string         `json:"name"`
	Code             string         `json:"code"`
	Status           Status         `json:"status"`
	StartDate        *time.Time     `json:"start_date,omitempty"`
	Deadline         *time.Time     `json:"deadline,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type ListResponse struct {
	Items    []Response          `json:"items"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type HistoryResponse struct {
	ID        snowflake.ID `json:"id"`
	ProjectID snowflake.ID `json:"project_id"`
	OldStatus *Status      `json:"old_status"`
	NewStatus Status       `json:"new_status"`
	Comment   *string      `json:"comment,omitempty"`
	ChangedAt time.Time    `json:"changed_at"`
}

var (
	ErrInvalidOrganization = apperr.New("invalid_organization", apperr.ErrUnauthorized)
	ErrInvalidID           = apperr.Invalid("id", "invalid_id")
	ErrInvalidStatus       = apperr.Invalid("status", "invalid_status")
	ErrInvalidName         = apperr.Invalid("name", "invalid_name")
	ErrInvalidCode         = apperr.Invalid("code", "invalid_code")
	ErrInvalidDeadline     = apperr.Invalid("deadline", "deadline_before_start")
	ErrLanguagePairsEmpty  = apperr.Invalid("language_pair_ids", "language_pairs_required")
	ErrEmptyUpdate         = apperr.Invalid("body", "empty_update")
	ErrNotFound            = apperr.NotFound("project")
	ErrForbidden           = apperr.New("project_forbidden", apperr.ErrForbidden)
)

func InvalidField(field string) error {
	return apperr.Invalid(field, "invalid_"+field)
}
