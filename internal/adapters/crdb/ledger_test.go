package crdb_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tickethub/ticket-inventory/internal/adapters/crdb"
	"github.com/tickethub/ticket-inventory/internal/domain"
)

func newTestLedger(t *testing.T) *crdb.Ledger {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	dsn, err := container.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/defaultdb?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	ledger := crdb.NewLedger(pool)
	if err := ledger.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	return ledger
}

func TestLedger_RecordAndUpdate(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	id, err := ledger.RecordAttempt(ctx, "E1", "u1", "Alice", domain.StatusBooked)
	if err != nil {
		t.Fatal(err)
	}
	if id == uuid.Nil {
		t.Fatal("expected a generated order id")
	}

	matched, err := ledger.UpdateStatus(ctx, "E1", "u1", domain.StatusBooked, domain.StatusCancelled)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Error("expected the booked row to match")
	}

	orders, err := ledger.ListByEvent(ctx, "E1")
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 row, got %d", len(orders))
	}
	if orders[0].Status != domain.StatusCancelled || orders[0].UserName != "Alice" {
		t.Errorf("row = %+v, want cancelled Alice", orders[0])
	}
}

func TestLedger_UpdateNoMatchIsReportedNoOp(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	matched, err := ledger.UpdateStatus(ctx, "E1", "ghost", domain.StatusBooked, domain.StatusCancelled)
	if err != nil {
		t.Fatal(err)
	}
	if matched {
		t.Error("expected no row to match")
	}
}

func TestLedger_UpdateTargetsMostRecentAttempt(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	// A cancelled earlier attempt and a fresh booked one for the same user.
	if _, err := ledger.RecordAttempt(ctx, "E1", "u1", "Alice", domain.StatusCancelled); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.RecordAttempt(ctx, "E1", "u1", "Alice", domain.StatusBooked); err != nil {
		t.Fatal(err)
	}

	matched, err := ledger.UpdateStatus(ctx, "E1", "u1", domain.StatusBooked, domain.StatusCancelled)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Fatal("expected the booked row to match")
	}

	orders, err := ledger.ListByEvent(ctx, "E1")
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(orders))
	}
	for _, o := range orders {
		if o.Status != domain.StatusCancelled {
			t.Errorf("row %s status = %s, want cancelled", o.ID, o.Status)
		}
	}
}

func TestLedger_ClosedPoolIsPersistenceError(t *testing.T) {
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, "postgresql://root@127.0.0.1:1/defaultdb?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	pool.Close()
	broken := crdb.NewLedger(pool)

	if _, err := broken.RecordAttempt(ctx, "E1", "u1", "Alice", domain.StatusBooked); !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}
