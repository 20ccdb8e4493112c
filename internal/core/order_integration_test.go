package core_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"zoho-sap-gateway/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// setupTestDB connects to the dedicated test database and wipes the order
// tables. Set TEST_DATABASE_URL (with the migrations applied) to run these
// tests; they are skipped otherwise to protect the live database.
func setupTestDB(t *testing.T) (*pgxpool.Pool, core.OrderService, context.Context) {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, "TRUNCATE TABLE sap_order_details, sap_orders RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}

	return pool, core.NewOrderService(pool), ctx
}

func testInput(idZoho string) core.OrderInput {
	notes := "first capture"
	return core.OrderInput{
		IDZoho:      idZoho,
		Enterprise:  "VINESA",
		IDWarehouse: 1,
		Customer:    "C1",
		OrderDate:   "2026-03-15",
		Salesperson: "Ana Perez",
		SelerEmail:  "ana@example.com",
		SelerID:     7,
		Serie:       1,
		Notes:       &notes,
		Lines: []core.OrderLineInput{
			{
				Product:   "P-100",
				Quantity:  decimal.NewFromInt(2),
				UnitPrice: decimal.RequireFromString("10.50"),
				Discount:  decimal.Zero,
				Total:     decimal.RequireFromString("21.00"),
			},
		},
	}
}

func TestOrderService_CreateContract(t *testing.T) {
	pool, svc, ctx := setupTestDB(t)
	defer pool.Close()

	order, created, err := svc.Upsert(ctx, testInput("ZOHO-1001"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !created {
		t.Error("expected a fresh id_zoho to take the create path")
	}
	if order.IDZoho != "ZOHO-1001" || order.Enterprise != "VINESA" {
		t.Errorf("unexpected order identity: %q / %q", order.IDZoho, order.Enterprise)
	}
	if order.IsIntegrated || order.IsFailed || order.IsUpdated || order.IsMailSend {
		t.Error("expected all integration flags false on creation")
	}
	if order.DocNum != nil || order.DocEntry != nil || order.ErrorMessage != nil || order.IntegrationDate != nil {
		t.Error("expected worker-owned fields to start NULL")
	}
	if order.CreatedAt.IsZero() {
		t.Error("expected created_at to be server-assigned")
	}
	if len(order.Details) != 1 {
		t.Fatalf("expected 1 detail line, got %d", len(order.Details))
	}
	if !order.Details[0].Tax.IsZero() {
		t.Errorf("expected tax forced to zero, got %s", order.Details[0].Tax)
	}
	if !order.Details[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected quantity 2, got %s", order.Details[0].Quantity)
	}
}

func TestOrderService_IdempotentResend(t *testing.T) {
	pool, svc, ctx := setupTestDB(t)
	defer pool.Close()

	first, created, err := svc.Upsert(ctx, testInput("ZOHO-1002"))
	if err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if !created {
		t.Fatal("expected first send to create")
	}

	resend := testInput("ZOHO-1002")
	resend.Lines = append(resend.Lines, core.OrderLineInput{
		Product:   "P-200",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.RequireFromString("5.00"),
		Discount:  decimal.Zero,
		Total:     decimal.RequireFromString("5.00"),
	})

	second, created, err := svc.Upsert(ctx, resend)
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if created {
		t.Error("expected re-send to take the update path")
	}
	if second.ID != first.ID {
		t.Errorf("expected the same order row, got ids %d and %d", first.ID, second.ID)
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM sap_orders WHERE id_zoho = 'ZOHO-1002'").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one order row, got %d", count)
	}

	// Detail set must equal exactly the second payload's lines.
	if len(second.Details) != 2 {
		t.Fatalf("expected 2 detail lines after re-send, got %d", len(second.Details))
	}
	if second.Details[0].Product != "P-100" || second.Details[1].Product != "P-200" {
		t.Errorf("unexpected detail products: %s, %s", second.Details[0].Product, second.Details[1].Product)
	}
}

func TestOrderService_UpdateImmutabilityAndResyncFlags(t *testing.T) {
	pool, svc, ctx := setupTestDB(t)
	defer pool.Close()

	created, _, err := svc.Upsert(ctx, testInput("ZOHO-1003"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Simulate a failed SAP attempt recorded by the sync worker.
	_, err = pool.Exec(ctx,
		"UPDATE sap_orders SET is_failed = true, error_message = 'SAP rejected document' WHERE id = $1",
		created.ID)
	if err != nil {
		t.Fatalf("failed to mark order failed: %v", err)
	}

	edit := testInput("ZOHO-1003")
	edit.Customer = "C2"
	edit.Salesperson = "Someone Else"
	newNotes := "edited after capture"
	edit.Notes = &newNotes

	updated, wasCreated, err := svc.Upsert(ctx, edit)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if wasCreated {
		t.Fatal("expected update path")
	}

	if updated.Customer != "C1" {
		t.Errorf("customer must be immutable through the API, got %q", updated.Customer)
	}
	if updated.Salesperson != "Ana Perez" {
		t.Errorf("salesperson must be immutable through the API, got %q", updated.Salesperson)
	}
	if updated.Notes == nil || *updated.Notes != "edited after capture" {
		t.Errorf("expected notes overwritten, got %v", updated.Notes)
	}
	if !updated.IsUpdated {
		t.Error("expected is_updated asserted for re-sync")
	}
	if updated.IsFailed {
		t.Error("expected is_failed cleared on update")
	}
	if updated.ErrorMessage != nil {
		t.Errorf("expected error_message cleared, got %q", *updated.ErrorMessage)
	}
}

func TestOrderService_AtomicUpdateReplace(t *testing.T) {
	pool, svc, ctx := setupTestDB(t)
	defer pool.Close()

	in := testInput("ZOHO-1004")
	in.Lines = append(in.Lines, core.OrderLineInput{
		Product:   "P-200",
		Quantity:  decimal.NewFromInt(3),
		UnitPrice: decimal.RequireFromString("4.00"),
		Discount:  decimal.Zero,
		Total:     decimal.RequireFromString("12.00"),
	})
	created, _, err := svc.Upsert(ctx, in)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// The second replacement line violates the quantity check constraint, so
	// the whole update transaction must roll back.
	bad := testInput("ZOHO-1004")
	badNotes := "must not stick"
	bad.Notes = &badNotes
	bad.Lines = append(bad.Lines, core.OrderLineInput{
		Product:   "P-300",
		Quantity:  decimal.NewFromInt(-1),
		UnitPrice: decimal.RequireFromString("4.00"),
		Discount:  decimal.Zero,
		Total:     decimal.RequireFromString("4.00"),
	})

	if _, _, err := svc.Upsert(ctx, bad); err == nil {
		t.Fatal("expected update with invalid line to fail")
	}

	after, err := svc.GetOrder(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if len(after.Details) != 2 {
		t.Fatalf("expected the original 2 detail lines to survive, got %d", len(after.Details))
	}
	if after.Details[0].Product != "P-100" || after.Details[1].Product != "P-200" {
		t.Errorf("original lines lost: %s, %s", after.Details[0].Product, after.Details[1].Product)
	}
	if after.Notes == nil || *after.Notes != "first capture" {
		t.Errorf("expected notes unchanged after rollback, got %v", after.Notes)
	}
	if after.IsUpdated {
		t.Error("expected is_updated unchanged after rollback")
	}
}

func TestOrderService_NotFoundReads(t *testing.T) {
	pool, svc, ctx := setupTestDB(t)
	defer pool.Close()

	if _, err := svc.GetOrder(ctx, 999999); !errorsIsNotFound(err) {
		t.Errorf("expected ErrOrderNotFound by id, got %v", err)
	}
	if _, err := svc.GetOrderByZohoID(ctx, "ZOHO-unknown"); !errorsIsNotFound(err) {
		t.Errorf("expected ErrOrderNotFound by id_zoho, got %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM sap_orders").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("not-found reads must have no side effects, found %d rows", count)
	}
}

func TestOrderService_ConcurrentUpsertSameKey(t *testing.T) {
	pool, svc, ctx := setupTestDB(t)
	defer pool.Close()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Upsert(ctx, testInput("ZOHO-1005"))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d: upsert failed: %v", i, err)
		}
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM sap_orders WHERE id_zoho = 'ZOHO-1005'").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one row for the contested key, got %d", count)
	}
}

func TestOrderService_ListPendingOrders(t *testing.T) {
	pool, svc, ctx := setupTestDB(t)
	defer pool.Close()

	first, _, err := svc.Upsert(ctx, testInput("ZOHO-1006"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Upsert(ctx, testInput("ZOHO-1007")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// The sync worker marks the first order integrated.
	_, err = pool.Exec(ctx,
		"UPDATE sap_orders SET is_integrated = true, integration_date = NOW(), doc_num = 501, doc_entry = 9001 WHERE id = $1",
		first.ID)
	if err != nil {
		t.Fatalf("failed to mark order integrated: %v", err)
	}

	pending, err := svc.ListPendingOrders(ctx)
	if err != nil {
		t.Fatalf("ListPendingOrders failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending order, got %d", len(pending))
	}
	if pending[0].IDZoho != "ZOHO-1007" {
		t.Errorf("expected ZOHO-1007 pending, got %s", pending[0].IDZoho)
	}
	if len(pending[0].Details) != 1 {
		t.Errorf("expected pending orders to include details, got %d lines", len(pending[0].Details))
	}
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, core.ErrOrderNotFound)
}
