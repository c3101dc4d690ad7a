package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/resource-booker/internal/application"
	"github.com/example/resource-booker/internal/testfixtures"
)

func seedCascade(t *testing.T, h *testfixtures.Harness) {
	t.Helper()
	h.Seed(t, testfixtures.Dataset{
		Users: []testfixtures.UserFixture{
			testfixtures.NewUserFixture(testfixtures.WithUserName("alice"), testfixtures.WithUserPassword("pw1")),
			testfixtures.NewUserFixture(testfixtures.WithUserName("bob"), testfixtures.WithUserPassword("pw2")),
		},
		Resources: []testfixtures.ResourceFixture{
			testfixtures.NewResourceFixture(testfixtures.WithResourceName("PC1"), testfixtures.WithResourceOwner("alice")),
			testfixtures.NewResourceFixture(testfixtures.WithResourceName("Room1")),
		},
		Bookings: []testfixtures.BookingFixture{
			booking("A1", "alice", "PC1", "2025-01-01", "2025-01-02"),
			booking("A2", "alice", "Room1", "2025-01-05", "2025-01-06"),
			booking("B1", "bob", "PC1", "2025-01-10", "2025-01-11"),
		},
	})
}

func TestCascadeService_RenameUser(t *testing.T) {
	t.Parallel()

	t.Run("rewrites owners on resources and bookings", func(t *testing.T) {
		t.Parallel()

		h := testfixtures.NewHarness(t)
		seedCascade(t, h)
		ctx := context.Background()

		result, err := h.Cascade.RenameUser(ctx, application.RenameUserParams{
			Name: "alice", NewName: "alicia", Secret: application.StaticSecret("pw1"),
		})
		if err != nil {
			t.Fatalf("RenameUser returned error: %v", err)
		}
		if result.ResourcesUpdated != 1 || result.BookingsUpdated != 2 {
			t.Fatalf("unexpected rename result %+v", result)
		}
		if _, err := h.Users.GetUser(ctx, "alice"); !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected old user name to be gone, got %v", err)
		}
		pc, err := h.Resources.GetResource(ctx, "PC1")
		if err != nil || pc.Owner == nil || *pc.Owner != "alicia" {
			t.Fatalf("expected PC1 owned by alicia, got %+v (%v)", pc, err)
		}
		mine, err := h.Reservations.ListBookings(ctx, application.BookingFilter{Owner: "alicia"})
		if err != nil || len(mine) != 2 {
			t.Fatalf("expected 2 bookings for alicia, got %+v (%v)", mine, err)
		}

		// The renamed user authenticates with the unchanged secret.
		if err := h.Reservations.DeleteBooking(ctx, application.DeleteBookingParams{Name: "A1", Secret: application.StaticSecret("pw1")}); err != nil {
			t.Fatalf("DeleteBooking as renamed user returned error: %v", err)
		}
		assertConsistent(t, h)
	})

	t.Run("refuses a taken name", func(t *testing.T) {
		t.Parallel()

		h := testfixtures.NewHarness(t)
		seedCascade(t, h)
		before := h.Snapshots()

		_, err := h.Cascade.RenameUser(context.Background(), application.RenameUserParams{
			Name: "alice", NewName: "bob", Secret: application.StaticSecret("pw1"),
		})
		if !errors.Is(err, application.ErrDuplicateName) {
			t.Fatalf("expected ErrDuplicateName, got %v", err)
		}
		assertSnapshotsEqual(t, before, h.Snapshots())
	})

	t.Run("requires the user's secret", func(t *testing.T) {
		t.Parallel()

		h := testfixtures.NewHarness(t)
		seedCascade(t, h)

		_, err := h.Cascade.RenameUser(context.Background(), application.RenameUserParams{
			Name: "alice", NewName: "alicia", Secret: application.StaticSecret("pw2"),
		})
		if !errors.Is(err, application.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestCascadeService_DeleteUser(t *testing.T) {
	t.Parallel()

	t.Run("hands resources to the replacement and removes bookings", func(t *testing.T) {
		t.Parallel()

		h := testfixtures.NewHarness(t)
		seedCascade(t, h)
		ctx := context.Background()

		result, err := h.Cascade.DeleteUser(ctx, application.DeleteUserParams{
			Name: "alice", Replacement: strPtr("bob"), Secret: application.StaticSecret("pw1"),
		})
		if err != nil {
			t.Fatalf("DeleteUser returned error: %v", err)
		}
		assertDays(t, result.ReassignedResources, "PC1")
		assertDays(t, result.RemovedBookings, "A1", "A2")

		pc, err := h.Resources.GetResource(ctx, "PC1")
		if err != nil || pc.Owner == nil || *pc.Owner != "bob" {
			t.Fatalf("expected PC1 owned by bob, got %+v (%v)", pc, err)
		}
		assertDays(t, daysBooked(t, h, "PC1"), "2025-01-10", "2025-01-11")
		assertDays(t, daysBooked(t, h, "Room1"))
		assertConsistent(t, h)
	})

	t.Run("leaves resources unowned without a replacement", func(t *testing.T) {
		t.Parallel()

		h := testfixtures.NewHarness(t)
		seedCascade(t, h)

		if _, err := h.Cascade.DeleteUser(context.Background(), application.DeleteUserParams{
			Name: "alice", Secret: application.StaticSecret("pw1"),
		}); err != nil {
			t.Fatalf("DeleteUser returned error: %v", err)
		}
		pc, err := h.Resources.GetResource(context.Background(), "PC1")
		if err != nil || pc.Owner != nil {
			t.Fatalf("expected PC1 to be unowned, got %+v (%v)", pc, err)
		}
	})

	t.Run("replacement must be another registered user", func(t *testing.T) {
		t.Parallel()

		for _, replacement := range []string{"alice", "carol"} {
			h := testfixtures.NewHarness(t)
			seedCascade(t, h)
			before := h.Snapshots()

			_, err := h.Cascade.DeleteUser(context.Background(), application.DeleteUserParams{
				Name: "alice", Replacement: strPtr(replacement), Secret: application.StaticSecret("pw1"),
			})
			if !errors.Is(err, application.ErrUnknownUser) {
				t.Fatalf("replacement %q: expected ErrUnknownUser, got %v", replacement, err)
			}
			assertSnapshotsEqual(t, before, h.Snapshots())
		}
	})

	t.Run("missing user", func(t *testing.T) {
		t.Parallel()

		h := testfixtures.NewHarness(t)
		seedCascade(t, h)

		_, err := h.Cascade.DeleteUser(context.Background(), application.DeleteUserParams{Name: "ghost"})
		if !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCascadeService_RenameResource(t *testing.T) {
	t.Parallel()

	t.Run("moves booked dates and rewrites bookings", func(t *testing.T) {
		t.Parallel()

		h := testfixtures.NewHarness(t)
		seedCascade(t, h)
		ctx := context.Background()

		result, err := h.Cascade.RenameResource(ctx, application.RenameResourceParams{
			Name: "PC1", NewName: "PC2", Secret: application.StaticSecret("pw1"),
		})
		if err != nil {
			t.Fatalf("RenameResource returned error: %v", err)
		}
		if result.BookingsUpdated != 2 {
			t.Fatalf("expected 2 bookings updated, got %+v", result)
		}
		if _, err := h.Resources.GetResource(ctx, "PC1"); !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected PC1 to be gone, got %v", err)
		}
		assertDays(t, daysBooked(t, h, "PC2"), "2025-01-01", "2025-01-02", "2025-01-10", "2025-01-11")
		onPC2, err := h.Reservations.ListBookings(ctx, application.BookingFilter{Resource: "PC2"})
		if err != nil || len(onPC2) != 2 {
			t.Fatalf("expected 2 bookings on PC2, got %+v (%v)", onPC2, err)
		}
		assertConsistent(t, h)
	})

	t.Run("unowned resources need no secret", func(t *testing.T) {
		t.Parallel()

		h := testfixtures.NewHarness(t)
		seedCascade(t, h)

		if _, err := h.Cascade.RenameResource(context.Background(), application.RenameResourceParams{
			Name: "Room1", NewName: "Hall",
		}); err != nil {
			t.Fatalf("RenameResource returned error: %v", err)
		}
	})

	t.Run("owned resources need the owner's secret", func(t *testing.T) {
		t.Parallel()

		h := testfixtures.NewHarness(t)
		seedCascade(t, h)

		_, err := h.Cascade.RenameResource(context.Background(), application.RenameResourceParams{
			Name: "PC1", NewName: "PC2", Secret: application.StaticSecret("pw2"),
		})
		if !errors.Is(err, application.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("refuses a taken name", func(t *testing.T) {
		t.Parallel()

		h := testfixtures.NewHarness(t)
		seedCascade(t, h)

		_, err := h.Cascade.RenameResource(context.Background(), application.RenameResourceParams{
			Name: "Room1", NewName: "PC1",
		})
		if !errors.Is(err, application.ErrDuplicateName) {
			t.Fatalf("expected ErrDuplicateName, got %v", err)
		}
	})
}

func TestCascadeService_DeleteResource(t *testing.T) {
	t.Parallel()

	h := testfixtures.NewHarness(t)
	seedCascade(t, h)
	ctx := context.Background()

	result, err := h.Cascade.DeleteResource(ctx, application.DeleteResourceParams{
		Name: "PC1", Secret: application.StaticSecret("pw1"),
	})
	if err != nil {
		t.Fatalf("DeleteResource returned error: %v", err)
	}
	assertDays(t, result.RemovedBookings, "A1", "B1")

	remaining, err := h.Reservations.ListBookings(ctx, application.BookingFilter{})
	if err != nil {
		t.Fatalf("ListBookings returned error: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Name != "A2" {
		t.Fatalf("expected only A2 to remain, got %+v", remaining)
	}
	assertConsistent(t, h)
}
