package service

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	projectdomain "github.com/smallbiznis/lingoflow/internal/project/domain"
	"gorm.io/datatypes"
)

func checkDates(start, deadline *time.Time) error {
	if start != nil && deadline != nil && !deadline.After(*start) {
		return projectdomain.ErrInvalidDeadline
	}
	return nil
}

// projectCode slugs the supplied code, or the name when no code is given.
func projectCode(code, name string) (string, error) {
	source := strings.TrimSpace(code)
	if source == "" {
		source = name
	}
	out := slug.Make(source)
	if out == "" {
		return "", projectdomain.ErrInvalidCode
	}
	return out, nil
}

func parseID(value, field string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, projectdomain.InvalidField(field)
	}
	return id, nil
}

// parseLanguagePairs parses and deduplicates ids, keeping first-seen order.
func parseLanguagePairs(values []string) ([]snowflake.ID, error) {
	seen := make(map[snowflake.ID]struct{}, len(values))
	out := make([]snowflake.ID, 0, len(values))
	for _, value := range values {
		id, err := parseID(value, "language_pair_ids")
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, projectdomain.ErrLanguagePairsEmpty
	}
	return out, nil
}

func applyUpdate(p *projectdomain.Project, req projectdomain.UpdateRequest) error {
	var err error
	if req.ClientID != nil {
		if p.ClientID, err = parseID(*req.ClientID, "client_id"); err != nil {
			return err
		}
	}
	if req.ProjectManagerID != nil {
		if p.ProjectManagerID, err = parseID(*req.ProjectManagerID, "project_manager_id"); err != nil {
			return err
		}
	}
	if req.AccountManagerID != nil {
		if strings.TrimSpace(*req.AccountManagerID) == "" {
			p.AccountManagerID = nil
		} else {
			id, err := parseID(*req.AccountManagerID, "account_manager_id")
			if err != nil {
				return err
			}
			p.AccountManagerID = &id
		}
	}
	if req.ServiceID != nil {
		if p.ServiceID, err = parseID(*req.ServiceID, "service_id"); err != nil {
			return err
		}
	}
	if req.SpecializationID != nil {
		if p.SpecializationID, err = parseID(*req.SpecializationID, "specialization_id"); err != nil {
			return err
		}
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return projectdomain.ErrInvalidName
		}
		p.Name = name
	}
	if req.Code != nil {
		if p.Code, err = projectCode(*req.Code, p.Name); err != nil {
			return err
		}
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if req.StartDate != nil {
		p.StartDate = req.StartDate
	}
	if req.Deadline != nil {
		p.Deadline = req.Deadline
	}
	if req.Metadata != nil {
		p.Metadata = datatypes.JSONMap(req.Metadata)
	}
	return nil
}

func isEmptyUpdate(req projectdomain.UpdateRequest) bool {
	return req.ClientID == nil &&
		req.ProjectManagerID == nil &&
		req.AccountManagerID == nil &&
		req.ServiceID == nil &&
		req.SpecializationID == nil &&
		req.LanguagePairIDs == nil &&
		req.Name == nil &&
		req.Code == nil &&
		req.Status == nil &&
		req.StartDate == nil &&
		req.Deadline == nil &&
		req.Metadata == nil
}

func notFound(ok bool, err error, resource string) error {
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound(resource)
	}
	return nil
}

func derefID(id *snowflake.ID) snowflake.ID {
	if id == nil {
		return 0
	}
	return *id
}

func toResponse(p *projectdomain.Project, pairIDs []snowflake.ID) *projectdomain.Response {
	if pairIDs == nil {
		pairIDs = []snowflake.ID{}
	}
	resp := &projectdomain.Response{
		ID:               p.ID,
		ClientID:         p.ClientID,
		ProjectManagerID: p.ProjectManagerID,
		AccountManagerID: p.AccountManagerID,
		ServiceID:        p.ServiceID,
		SpecializationID: p.SpecializationID,
		LanguagePairIDs:  pairIDs,
		Name:             p.Name,
		Code:             p.Code,
		Status:           p.Status,
		StartDate:        p.StartDate,
		Deadline:         p.Deadline,
		CreatedAt:        p.CreatedAt.UTC(),
		UpdatedAt:        p.UpdatedAt.UTC(),
	}
	if len(p.Metadata) > 0 {
		resp.Metadata = map[string]any(p.Metadata)
	}
	return resp
}
