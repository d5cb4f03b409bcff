package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-procure/internal/shared"
	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

func seededService(t *testing.T) *Service {
	t.Helper()
	logger := shared.NewAuditLogger(store.New(), nil)
	ctx := shared.ContextWithActor(context.Background(), "Maria Santos")
	base := time.Date(2024, 1, 18, 9, 0, 0, 0, time.UTC)
	for i, action := range []string{"REQUISITION_CREATE", "REQUISITION_APPROVE", "QUOTATION_CREATE", "PO_CREATE", "PO_RECEIVE"} {
		entity := strings.ToLower(strings.SplitN(action, "_", 2)[0])
		require.NoError(t, logger.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   entity,
			EntityID: "1",
			Meta:     map[string]any{"number": "DOC-" + action, "step": i},
			At:       base.Add(time.Duration(i) * time.Hour),
		}))
	}
	return NewService(logger)
}

func TestTimelinePagesNewestFirst(t *testing.T) {
	svc := seededService(t)
	ctx := context.Background()

	first, err := svc.Timeline(ctx, TimelineFilters{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Rows, 2)
	require.Equal(t, "PO_RECEIVE", first.Rows[0].Action)
	require.True(t, first.Paging.HasNext)
	require.Equal(t, 2, first.Paging.NextPage)

	last, err := svc.Timeline(ctx, TimelineFilters{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, last.Rows, 1)
	require.False(t, last.Paging.HasNext)
	require.Equal(t, 2, last.Paging.PrevPage)
	require.Equal(t, "REQUISITION_CREATE", last.Rows[0].Action)

	beyond, err := svc.Timeline(ctx, TimelineFilters{Page: 9, PageSize: 2})
	require.NoError(t, err)
	require.Empty(t, beyond.Rows)
}

func TestExportFiltersAndFormatsMeta(t *testing.T) {
	svc := seededService(t)

	rows, err := svc.Export(context.Background(), TimelineFilters{Entity: "po"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Maria Santos", rows[0].Actor)
	require.Equal(t, "number=DOC-PO_RECEIVE step=4", rows[0].Details)

	rows, err = svc.Export(context.Background(), TimelineFilters{
		From: time.Date(2024, 1, 18, 10, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 18, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	data, err := WriteCSV(rows)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "At,Actor,Action,Entity,Entity ID,Details", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "2024-01-18T11:00:00Z,Maria Santos,QUOTATION_CREATE"))
	require.True(t, strings.HasSuffix(lines[1], ",quotation,1,number=DOC-QUOTATION_CREATE step=2"), lines[1])
	require.True(t, strings.HasSuffix(lines[2], ",requisition,1,number=DOC-REQUISITION_APPROVE step=1"), lines[2])
}

func TestServiceWithoutSource(t *testing.T) {
	_, err := NewService(nil).Export(context.Background(), TimelineFilters{})
	require.Error(t, err)
}
