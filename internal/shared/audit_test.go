package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

func TestAuditLoggerRecordAndList(t *testing.T) {
	st := store.New()
	logger := NewAuditLogger(st, nil)
	ctx := ContextWithActor(context.Background(), "maria")

	require.NoError(t, logger.Record(ctx, AuditLog{Action: "REQ_CREATE", Entity: "requisition", EntityID: "1"}))
	require.NoError(t, logger.Record(context.Background(), AuditLog{Action: "REQ_APPROVE", Entity: "requisition", EntityID: "1"}))
	require.NoError(t, logger.Record(ctx, AuditLog{Action: "PO_CREATE", Entity: "purchase_order", EntityID: "7"}))
	require.Error(t, logger.Record(ctx, AuditLog{Action: "X"}))

	entries, err := logger.List(context.Background(), AuditFilter{Entity: "requisition"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "REQ_APPROVE", entries[0].Action)
	require.Equal(t, SystemActor, entries[0].Actor)
	require.Equal(t, "maria", entries[1].Actor)
	require.False(t, entries[1].At.IsZero())
}

func TestAuditLoggerRollsBackWithTransaction(t *testing.T) {
	st := store.New()
	logger := NewAuditLogger(st, nil)

	err := st.WithTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, logger.Record(ctx, AuditLog{Action: "A", Entity: "e", EntityID: "1"}))
		return errors.New("abort")
	})
	require.Error(t, err)

	entries, err := logger.List(context.Background(), AuditFilter{})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestApprovalRecorder(t *testing.T) {
	st := store.New()
	recorder := NewApprovalRecorder(st, nil)
	ctx := ContextWithActor(context.Background(), "joao")
	ref := ApprovalRef("procurement.requisition", "REQ-2024-001")

	require.Equal(t, ref, ApprovalRef("procurement.requisition", "REQ-2024-001"))
	require.NoError(t, recorder.Record(ctx, ApprovalLog{Module: "procurement.requisition", RefID: ref, Action: ApprovalApprove, Note: "ok"}))
	require.Error(t, recorder.Record(ctx, ApprovalLog{Module: "procurement.requisition", Action: ApprovalApprove}))

	logs, err := recorder.List(ctx, "procurement.requisition", ref)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "joao", logs[0].Actor)
	require.Equal(t, ApprovalApprove, logs[0].Action)
}

func TestActorFromContext(t *testing.T) {
	require.Equal(t, SystemActor, ActorFromContext(context.Background()))
	require.Equal(t, SystemActor, ActorFromContext(ContextWithActor(context.Background(), "  ")))
	require.Equal(t, "ana", ActorFromContext(ContextWithActor(context.Background(), " ana ")))
}
