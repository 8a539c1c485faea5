package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/merenda/planning-api/internal/database"
	"github.com/merenda/planning-api/internal/enum"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockWorkflowStore implements WorkflowStore with configurable behavior.
type mockWorkflowStore struct {
	getRequisitionFn     func(ctx context.Context, id int64) (database.Requisition, error)
	getSchoolFn          func(ctx context.Context, id int64) (database.School, error)
	advanceFn            func(ctx context.Context, arg database.AdvanceRequisitionStatusParams) (int64, error)
	updateHeaderFn       func(ctx context.Context, arg database.UpdateRequisitionHeaderParams) (database.Requisition, error)
	deleteSubstitutions  []int64
	deleteItems          []int64
	deleteRequisitions   []int64
	deleteRequisitionErr error
}

func (m *mockWorkflowStore) GetRequisition(ctx context.Context, id int64) (database.Requisition, error) {
	return m.getRequisitionFn(ctx, id)
}
func (m *mockWorkflowStore) GetSchool(ctx context.Context, id int64) (database.School, error) {
	if m.getSchoolFn == nil {
		return database.School{}, pgx.ErrNoRows
	}
	return m.getSchoolFn(ctx, id)
}
func (m *mockWorkflowStore) AdvanceRequisitionStatus(ctx context.Context, arg database.AdvanceRequisitionStatusParams) (int64, error) {
	return m.advanceFn(ctx, arg)
}
func (m *mockWorkflowStore) UpdateRequisitionHeader(ctx context.Context, arg database.UpdateRequisitionHeaderParams) (database.Requisition, error) {
	return m.updateHeaderFn(ctx, arg)
}
func (m *mockWorkflowStore) DeleteRequisitionSubstitutions(ctx context.Context, requisitionID int64) error {
	m.deleteSubstitutions = append(m.deleteSubstitutions, requisitionID)
	return nil
}
func (m *mockWorkflowStore) DeleteRequisitionItems(ctx context.Context, requisitionID int64) error {
	m.deleteItems = append(m.deleteItems, requisitionID)
	return nil
}
func (m *mockWorkflowStore) DeleteRequisition(ctx context.Context, id int64) (int64, error) {
	if m.deleteRequisitionErr != nil {
		return 0, m.deleteRequisitionErr
	}
	m.deleteRequisitions = append(m.deleteRequisitions, id)
	return id, nil
}

// mockNotifier records release and delete broadcasts.
type mockNotifier struct {
	released [][2]int64
	deleted  [][2]int64
}

func (m *mockNotifier) RequisitionReleased(routeID, requisitionID int64) {
	m.released = append(m.released, [2]int64{routeID, requisitionID})
}
func (m *mockNotifier) RequisitionDeleted(routeID, requisitionID int64) {
	m.deleted = append(m.deleted, [2]int64{routeID, requisitionID})
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func newWorkflowService(store *mockWorkflowStore, notifier ReleaseNotifier) (*WorkflowService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) WorkflowStore { return store }
	return NewWorkflowService(pool, newStore, notifier), tx
}

// --- Advance tests ---

func TestAdvance_NutritionistHandOff(t *testing.T) {
	store := &mockWorkflowStore{
		advanceFn: func(ctx context.Context, arg database.AdvanceRequisitionStatusParams) (int64, error) {
			if arg.FromStatus != enum.StatusGenerated || arg.ToStatus != enum.StatusNutritionist {
				t.Errorf("transition: got %q -> %q, want %q -> %q",
					arg.FromStatus, arg.ToStatus, enum.StatusGenerated, enum.StatusNutritionist)
			}
			return arg.ID, nil
		},
		getRequisitionFn: func(ctx context.Context, id int64) (database.Requisition, error) {
			return database.Requisition{ID: id, Status: enum.StatusNutritionist}, nil
		},
	}
	notifier := &mockNotifier{}
	svc, tx := newWorkflowService(store, notifier)

	req, err := svc.Advance(context.Background(), 7, enum.RoleNutritionist)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if req.Status != enum.StatusNutritionist {
		t.Errorf("status: got %q, want %q", req.Status, enum.StatusNutritionist)
	}
	if !tx.committed {
		t.Error("expected transaction commit")
	}
	if len(notifier.released) != 0 {
		t.Errorf("hand-off to coordination must not broadcast a release, got %v", notifier.released)
	}
}

func TestAdvance_CoordinationReleaseBroadcasts(t *testing.T) {
	store := &mockWorkflowStore{
		advanceFn: func(ctx context.Context, arg database.AdvanceRequisitionStatusParams) (int64, error) {
			return arg.ID, nil
		},
		getRequisitionFn: func(ctx context.Context, id int64) (database.Requisition, error) {
			return database.Requisition{ID: id, SchoolID: 3, Status: enum.StatusCoordination}, nil
		},
		getSchoolFn: func(ctx context.Context, id int64) (database.School, error) {
			return database.School{ID: id, RouteID: pgtype.Int8{Int64: 42, Valid: true}}, nil
		},
	}
	notifier := &mockNotifier{}
	svc, _ := newWorkflowService(store, notifier)

	if _, err := svc.Advance(context.Background(), 7, enum.RoleCoordination); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(notifier.released) != 1 {
		t.Fatalf("released broadcasts: got %d, want 1", len(notifier.released))
	}
	if got := notifier.released[0]; got != [2]int64{42, 7} {
		t.Errorf("broadcast: got route %d req %d, want route 42 req 7", got[0], got[1])
	}
}

func TestAdvance_RoleWithoutTransition(t *testing.T) {
	svc, _ := newWorkflowService(&mockWorkflowStore{}, nil)

	for _, role := range []string{enum.RoleAdmin, enum.RoleLogistics, "UNKNOWN"} {
		if _, err := svc.Advance(context.Background(), 1, role); !errors.Is(err, ErrForbidden) {
			t.Errorf("role %s: got %v, want ErrForbidden", role, err)
		}
	}
}

func TestAdvance_WrongPredecessorStatus(t *testing.T) {
	// Guarded update matches nothing, but the requisition exists: the caller
	// raced someone or skipped a step.
	store := &mockWorkflowStore{
		advanceFn: func(ctx context.Context, arg database.AdvanceRequisitionStatusParams) (int64, error) {
			return 0, pgx.ErrNoRows
		},
		getRequisitionFn: func(ctx context.Context, id int64) (database.Requisition, error) {
			return database.Requisition{ID: id, Status: enum.StatusCoordination}, nil
		},
	}
	svc, tx := newWorkflowService(store, nil)

	_, err := svc.Advance(context.Background(), 1, enum.RoleNutritionist)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
	if tx.committed {
		t.Error("failed advance must not commit")
	}
}

func TestAdvance_RequisitionGone(t *testing.T) {
	store := &mockWorkflowStore{
		advanceFn: func(ctx context.Context, arg database.AdvanceRequisitionStatusParams) (int64, error) {
			return 0, pgx.ErrNoRows
		},
		getRequisitionFn: func(ctx context.Context, id int64) (database.Requisition, error) {
			return database.Requisition{}, pgx.ErrNoRows
		},
	}
	svc, _ := newWorkflowService(store, nil)

	if _, err := svc.Advance(context.Background(), 1, enum.RoleNutritionist); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

// --- Correct tests ---

func TestCorrect_AdminOnly(t *testing.T) {
	svc, _ := newWorkflowService(&mockWorkflowStore{}, nil)

	for _, role := range []string{enum.RoleNutritionist, enum.RoleCoordination, enum.RoleLogistics} {
		_, err := svc.Correct(context.Background(), 1, role, HeaderPatch{})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("role %s: got %v, want ErrForbidden", role, err)
		}
	}
}

func TestCorrect_PatchesOnlyProvidedFields(t *testing.T) {
	week := "2025-W30"
	store := &mockWorkflowStore{
		updateHeaderFn: func(ctx context.Context, arg database.UpdateRequisitionHeaderParams) (database.Requisition, error) {
			if arg.SchoolID.Valid {
				t.Error("school_id was not patched, must be passed as NULL")
			}
			if !arg.ConsumptionWeek.Valid || arg.ConsumptionWeek.String != week {
				t.Errorf("consumption_week: got %+v, want %q", arg.ConsumptionWeek, week)
			}
			if arg.SupplyWeek.Valid {
				t.Error("supply_week was not patched, must be passed as NULL")
			}
			return database.Requisition{ID: arg.ID, ConsumptionWeek: week}, nil
		},
	}
	svc, tx := newWorkflowService(store, nil)

	req, err := svc.Correct(context.Background(), 9, enum.RoleAdmin, HeaderPatch{ConsumptionWeek: &week})
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if req.ConsumptionWeek != week {
		t.Errorf("consumption week: got %q, want %q", req.ConsumptionWeek, week)
	}
	if !tx.committed {
		t.Error("expected transaction commit")
	}
}

func TestCorrect_NotFound(t *testing.T) {
	store := &mockWorkflowStore{
		updateHeaderFn: func(ctx context.Context, arg database.UpdateRequisitionHeaderParams) (database.Requisition, error) {
			return database.Requisition{}, pgx.ErrNoRows
		},
	}
	svc, _ := newWorkflowService(store, nil)

	if _, err := svc.Correct(context.Background(), 1, enum.RoleAdmin, HeaderPatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

// --- Delete tests ---

func TestDelete_CascadesInOrder(t *testing.T) {
	store := &mockWorkflowStore{
		getRequisitionFn: func(ctx context.Context, id int64) (database.Requisition, error) {
			return database.Requisition{ID: id, SchoolID: 3, Status: enum.StatusGenerated}, nil
		},
		getSchoolFn: func(ctx context.Context, id int64) (database.School, error) {
			return database.School{ID: id, RouteID: pgtype.Int8{Int64: 5, Valid: true}}, nil
		},
	}
	notifier := &mockNotifier{}
	svc, tx := newWorkflowService(store, notifier)

	if err := svc.Delete(context.Background(), 11, enum.RoleAdmin); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(store.deleteSubstitutions) != 1 || store.deleteSubstitutions[0] != 11 {
		t.Errorf("substitutions cascade: got %v", store.deleteSubstitutions)
	}
	if len(store.deleteItems) != 1 || store.deleteItems[0] != 11 {
		t.Errorf("items cascade: got %v", store.deleteItems)
	}
	if len(store.deleteRequisitions) != 1 || store.deleteRequisitions[0] != 11 {
		t.Errorf("requisition delete: got %v", store.deleteRequisitions)
	}
	if !tx.committed {
		t.Error("expected transaction commit")
	}
	if len(notifier.deleted) != 1 || notifier.deleted[0] != [2]int64{5, 11} {
		t.Errorf("delete broadcast: got %v, want [[5 11]]", notifier.deleted)
	}
}

func TestDelete_AdminOnly(t *testing.T) {
	svc, _ := newWorkflowService(&mockWorkflowStore{}, nil)

	if err := svc.Delete(context.Background(), 1, enum.RoleNutritionist); !errors.Is(err, ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	store := &mockWorkflowStore{
		getRequisitionFn: func(ctx context.Context, id int64) (database.Requisition, error) {
			return database.Requisition{}, pgx.ErrNoRows
		},
	}
	svc, _ := newWorkflowService(store, nil)

	if err := svc.Delete(context.Background(), 1, enum.RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
