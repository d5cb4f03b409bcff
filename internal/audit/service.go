package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-procure/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Source lists recorded audit entries, newest first.
type Source interface {
	List(ctx context.Context, filter shared.AuditFilter) ([]shared.AuditEntry, error)
}

// Service reads the audit trail written by the domain services.
type Service struct {
	source Source
}

// NewService builds an audit timeline service.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// Timeline returns one page of entries matching filters.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.Export(ctx, filters)
	if err != nil {
		return Result{}, err
	}
	offset := (page - 1) * pageSize
	if offset > len(rows) {
		offset = len(rows)
	}
	end := offset + pageSize
	hasNext := end < len(rows)
	if !hasNext {
		end = len(rows)
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows[offset:end], Paging: paging}, nil
}

// Export returns every entry matching filters without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.source == nil {
		return nil, errors.New("audit: source not configured")
	}
	entries, err := s.source.List(ctx, shared.AuditFilter{
		Entity:   strings.TrimSpace(filters.Entity),
		EntityID: strings.TrimSpace(filters.EntityID),
		Actor:    strings.TrimSpace(filters.Actor),
		Action:   strings.TrimSpace(filters.Action),
		From:     filters.From,
		To:       filters.To,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: list entries: %w", err)
	}
	rows := make([]TimelineRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, TimelineRow{
			At:       e.At,
			Actor:    e.Actor,
			Action:   e.Action,
			Entity:   e.Entity,
			EntityID: e.EntityID,
			Details:  formatMeta(e.AuditLog.Meta),
		})
	}
	return rows, nil
}

func formatMeta(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return strings.Join(parts, " ")
}
