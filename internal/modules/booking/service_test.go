// README: Booking lifecycle tests against PostgreSQL (run with -race).
package booking

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"tripease/internal/maps"
	"tripease/internal/modules/pricing"
	"tripease/internal/types"
)

// stubRoutes returns fixed trip metrics so tests are independent of any
// routing backend.
type stubRoutes struct {
	est maps.RouteEstimate
	err error
}

func (s stubRoutes) Estimate(_ context.Context, _, _ types.Point) (maps.RouteEstimate, error) {
	return s.est, s.err
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(
		setupTestStore(t),
		pricing.NewService(nil),
		stubRoutes{est: maps.RouteEstimate{DistanceKm: 10, DurationMin: 20}},
	)
}

func TestRequestRideCreatesPendingWithQuotedFare(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b := mustRequestRide(t, svc, "r_create")
	if b.Status != StatusPending {
		t.Fatalf("expected pending, got %s", b.Status)
	}
	if b.DriverID != nil {
		t.Fatal("expected no driver on a fresh booking")
	}
	// car, 10 km, 20 min: 50 + 150 + 40 = 240
	if b.Fare.Amount != 240 {
		t.Fatalf("fare = %d, want 240", b.Fare.Amount)
	}
	if b.DistanceKm != 10 || b.DurationMin != 20 {
		t.Fatalf("trip metrics not captured: %v km, %v min", b.DistanceKm, b.DurationMin)
	}

	got, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Fare != b.Fare {
		t.Fatalf("stored fare %+v differs from created %+v", got.Fare, b.Fare)
	}
}

func TestRequestRideRouteUnavailable(t *testing.T) {
	svc := NewService(
		setupTestStore(t),
		pricing.NewService(nil),
		stubRoutes{err: maps.ErrRouteUnavailable},
	)
	_, err := svc.RequestRide(context.Background(), RequestCommand{
		RiderID:      "r_noroute",
		Pickup:       testPickup(),
		Destination:  testDestination(),
		VehicleClass: pricing.ClassCar,
	})
	if err != ErrQuoteUnavailable {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
	// Nothing was partially created.
	list, err := svc.RiderHistory(context.Background(), "r_noroute")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no bookings, got %d", len(list))
	}
}

func TestRequestRideInvalidClass(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.RequestRide(context.Background(), RequestCommand{
		RiderID:      "r_badclass",
		Pickup:       testPickup(),
		Destination:  testDestination(),
		VehicleClass: "rickshaw",
	})
	if err != pricing.ErrInvalidClass {
		t.Fatalf("expected ErrInvalidClass, got %v", err)
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b := mustRequestRide(t, svc, "r_happy")

	claimed, err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "d1"})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", claimed.Status)
	}
	if claimed.DriverID == nil || *claimed.DriverID != "d1" {
		t.Fatalf("expected driver d1, got %v", claimed.DriverID)
	}
	if claimed.AcceptedAt == nil {
		t.Fatal("expected accepted_at to be stamped")
	}

	if err := svc.Start(ctx, StartCommand{BookingID: b.ID, DriverID: "d1"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	assertStatus(t, svc, b.ID, StatusInProgress)

	done, err := svc.Complete(ctx, CompleteCommand{BookingID: b.ID, DriverID: "d1"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	// The bill equals the creation-time estimate, never recomputed.
	if done.Fare != b.Fare {
		t.Fatalf("fare changed across lifecycle: %+v vs %+v", done.Fare, b.Fare)
	}
	if done.CompletedAt == nil || done.StartedAt == nil {
		t.Fatal("expected transition timestamps to be retained")
	}
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b := mustRequestRide(t, svc, "r_race")

	const drivers = 8
	start := make(chan struct{})
	errs := make(chan error, drivers)
	var wg sync.WaitGroup

	for i := 0; i < drivers; i++ {
		driverID := types.ID(fmt.Sprintf("d_race_%d", i))
		wg.Add(1)
		go func(did types.ID) {
			defer wg.Done()
			<-start
			_, err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: did})
			errs <- err
		}(driverID)
	}

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrAlreadyClaimed {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 winning claim, got %d", success)
	}

	got, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", got.Status)
	}
	if got.DriverID == nil || *got.DriverID == "" {
		t.Fatal("expected exactly one driver id to be set")
	}
}

func TestClaimRetryByWinnerIsConflict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b := mustRequestRide(t, svc, "r_retry")
	if _, err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "d1"}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// A network-level retry of the same claim lands in the conflict
	// family, which the client treats as "already done".
	if _, err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "d1"}); err != ErrAlreadyClaimed {
		t.Fatalf("expected ErrAlreadyClaimed on retry, got %v", err)
	}
}

func TestConcurrentClaimVsCancel(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b := mustRequestRide(t, svc, "r_claim_cancel")

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "d1"})
		errs <- err
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- svc.Cancel(ctx, CancelCommand{BookingID: b.ID, ActorType: "rider", ActorID: "r_claim_cancel", Reason: "user_cancel"})
	}()

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && err != ErrAlreadyClaimed && err != ErrConflict && err != ErrInvalidState {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusAccepted && got.Status != StatusCancelled {
		t.Fatalf("unexpected final status: %s", got.Status)
	}
}

func TestInvalidTransitionsNeverMutate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b := mustRequestRide(t, svc, "r_invalid")

	if err := svc.Start(ctx, StartCommand{BookingID: b.ID, DriverID: "d1"}); err != ErrNotAssignedDriver {
		t.Fatalf("start on pending: expected ErrNotAssignedDriver, got %v", err)
	}
	if _, err := svc.Complete(ctx, CompleteCommand{BookingID: b.ID, DriverID: "d1"}); err != ErrNotAssignedDriver {
		t.Fatalf("complete on pending: expected ErrNotAssignedDriver, got %v", err)
	}
	assertStatus(t, svc, b.ID, StatusPending)

	if _, err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "d1"}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.Complete(ctx, CompleteCommand{BookingID: b.ID, DriverID: "d1"}); err != ErrInvalidState {
		t.Fatalf("complete on accepted: expected ErrInvalidState, got %v", err)
	}
	assertStatus(t, svc, b.ID, StatusAccepted)
}

func TestStartRestrictedToAssignedDriver(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b := mustRequestRide(t, svc, "r_wrongdriver")
	if _, err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "d_owner"}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := svc.Start(ctx, StartCommand{BookingID: b.ID, DriverID: "d_other"}); err != ErrNotAssignedDriver {
		t.Fatalf("expected ErrNotAssignedDriver, got %v", err)
	}
	if _, err := svc.Complete(ctx, CompleteCommand{BookingID: b.ID, DriverID: "d_other"}); err != ErrNotAssignedDriver {
		t.Fatalf("expected ErrNotAssignedDriver, got %v", err)
	}
	assertStatus(t, svc, b.ID, StatusAccepted)
}

func TestCancelWindows(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("from_pending", func(t *testing.T) {
		b := mustRequestRide(t, svc, "r_cancel_pending")
		if err := svc.Cancel(ctx, CancelCommand{BookingID: b.ID, ActorType: "rider", ActorID: "r_cancel_pending", Reason: "user_cancel"}); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		assertStatus(t, svc, b.ID, StatusCancelled)

		if _, err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "d1"}); err != ErrInvalidState {
			t.Fatalf("claim after cancel: expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("from_accepted", func(t *testing.T) {
		b := mustRequestRide(t, svc, "r_cancel_accepted")
		if _, err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "d1"}); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := svc.Cancel(ctx, CancelCommand{BookingID: b.ID, ActorType: "driver", ActorID: "d1", Reason: "driver_cancel"}); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		assertStatus(t, svc, b.ID, StatusCancelled)
	})

	t.Run("not_after_start", func(t *testing.T) {
		b := mustRequestRide(t, svc, "r_cancel_late")
		if _, err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "d1"}); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := svc.Start(ctx, StartCommand{BookingID: b.ID, DriverID: "d1"}); err != nil {
			t.Fatalf("start: %v", err)
		}
		err := svc.Cancel(ctx, CancelCommand{BookingID: b.ID, ActorType: "rider", ActorID: "r_cancel_late", Reason: "user_cancel"})
		if err != ErrInvalidState {
			t.Fatalf("expected ErrInvalidState after start, got %v", err)
		}
		assertStatus(t, svc, b.ID, StatusInProgress)
	})

	t.Run("rider_cannot_cancel_others", func(t *testing.T) {
		b := mustRequestRide(t, svc, "r_cancel_own")
		err := svc.Cancel(ctx, CancelCommand{BookingID: b.ID, ActorType: "rider", ActorID: "r_somebody_else", Reason: "user_cancel"})
		if err != ErrNotAllowed {
			t.Fatalf("expected ErrNotAllowed, got %v", err)
		}
		assertStatus(t, svc, b.ID, StatusPending)
	})
}

func TestGetUnknownBooking(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Get(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuditTrailRecordsTransitions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b := mustRequestRide(t, svc, "r_audit")
	if _, err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "d_audit"}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := svc.Start(ctx, StartCommand{BookingID: b.ID, DriverID: "d_audit"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Complete(ctx, CompleteCommand{BookingID: b.ID, DriverID: "d_audit"}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	events, err := svc.store.ListEvents(ctx, b.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	want := []Status{StatusPending, StatusAccepted, StatusInProgress, StatusCompleted}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, e := range events {
		if e.ToStatus != want[i] {
			t.Errorf("event[%d].ToStatus = %s, want %s", i, e.ToStatus, want[i])
		}
	}
}

func mustRequestRide(t *testing.T, svc *Service, riderID types.ID) *Booking {
	t.Helper()
	b, err := svc.RequestRide(context.Background(), RequestCommand{
		RiderID:      riderID,
		Pickup:       testPickup(),
		Destination:  testDestination(),
		VehicleClass: pricing.ClassCar,
	})
	if err != nil {
		t.Fatalf("request ride: %v", err)
	}
	return b
}

func testPickup() Stop {
	return Stop{Address: "Connaught Place", Position: types.Point{Lat: 28.6315, Lng: 77.2167}}
}

func testDestination() Stop {
	return Stop{Address: "India Gate", Position: types.Point{Lat: 28.6129, Lng: 77.2295}}
}

func assertStatus(t *testing.T, svc *Service, id types.ID, want Status) {
	t.Helper()
	b, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if b.Status != want {
		t.Fatalf("expected status %s, got %s", want, b.Status)
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TRIPEASE_TEST_DSN")
	if dsn == "" {
		t.Skip("TRIPEASE_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE booking_state_events, bookings"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
