package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"serverbook/internal/testfixtures"
)

func TestCalendarLayout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	other := testfixtures.CreateUser(t, h.db)
	mine := h.slot(t, testfixtures.Date(2026, time.October, 20))
	theirs := h.slot(t, testfixtures.Date(2026, time.October, 21))
	free := h.slot(t, testfixtures.Date(2026, time.October, 22))
	testfixtures.Reserve(t, h.db, mine.ID, h.user.ID)
	testfixtures.Reserve(t, h.db, theirs.ID, other.ID)

	cal, err := h.svc.Calendar(ctx, h.user.ID, h.server.ID, 2026, time.October)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if len(cal.Weeks) != 5 {
		t.Fatalf("expected 5 weeks in October 2026, got %d", len(cal.Weeks))
	}
	// 1 October 2026 is a Thursday.
	if first := cal.Weeks[0][4]; first.Day != 1 || first.Date != "2026-10-01" {
		t.Fatalf("expected October 1 in column 4, got %+v", first)
	}
	for col := 0; col < 4; col++ {
		if cal.Weeks[0][col].Day != 0 {
			t.Fatalf("expected padding in column %d, got %+v", col, cal.Weeks[0][col])
		}
	}
	if last := cal.Weeks[4][6]; last.Day != 31 {
		t.Fatalf("expected October 31 on the last Saturday, got %+v", last)
	}
	if cal.Prev != (YearMonth{Year: 2026, Month: time.September}) || cal.Next != (YearMonth{Year: 2026, Month: time.November}) {
		t.Fatalf("unexpected navigation: prev=%+v next=%+v", cal.Prev, cal.Next)
	}
	if cal.MonthName != "October" || cal.ServerName != h.server.Name {
		t.Fatalf("unexpected header: %q %q", cal.MonthName, cal.ServerName)
	}

	cells := map[int]CalendarDay{}
	for _, week := range cal.Weeks {
		for _, cell := range week {
			if cell.Day != 0 {
				cells[cell.Day] = cell
			}
		}
	}
	if c := cells[20]; !c.Reserved || !c.Mine || c.SlotID == nil || *c.SlotID != mine.ID {
		t.Fatalf("unexpected cell for own reservation: %+v", c)
	}
	if c := cells[21]; !c.Reserved || c.Mine || c.ReservedBy != other.Username {
		t.Fatalf("unexpected cell for other's reservation: %+v", c)
	}
	if c := cells[22]; c.Reserved || c.SlotID == nil || *c.SlotID != free.ID {
		t.Fatalf("unexpected cell for free slot: %+v", c)
	}
	if c := cells[23]; c.SlotID != nil {
		t.Fatalf("day without a slot should have no slot id: %+v", c)
	}
}

func TestCalendarDefaultsAndYearWrap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cal, err := h.svc.Calendar(ctx, h.user.ID, h.server.ID, 0, 0)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if cal.Year != 2026 || cal.Month != time.October {
		t.Fatalf("expected current month, got %d-%d", cal.Year, cal.Month)
	}

	cal, err = h.svc.Calendar(ctx, h.user.ID, h.server.ID, 2027, time.January)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if cal.Prev != (YearMonth{Year: 2026, Month: time.December}) || cal.Next != (YearMonth{Year: 2027, Month: time.February}) {
		t.Fatalf("unexpected navigation across years: prev=%+v next=%+v", cal.Prev, cal.Next)
	}
}

func TestCalendarAccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	outsider := testfixtures.CreateUser(t, h.db)

	_, err := h.svc.Calendar(ctx, outsider.ID, h.server.ID, 2026, time.October)
	expectReason(t, err, ReasonNotAssigned)

	if _, err := h.svc.Calendar(ctx, h.user.ID, 9999, 2026, time.October); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	yesterday := h.slot(t, testfixtures.Date(2026, time.October, 13))
	today := h.slot(t, testfixtures.Date(2026, time.October, 14))
	later := h.slot(t, testfixtures.Date(2026, time.October, 28))
	for _, id := range []uint64{later.ID, yesterday.ID, today.ID} {
		testfixtures.Reserve(t, h.db, id, h.user.ID)
	}

	dash, err := h.svc.Dashboard(ctx, h.user.ID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(dash.Servers) != 1 || dash.Servers[0].Server.ID != h.server.ID {
		t.Fatalf("unexpected servers: %+v", dash.Servers)
	}
	if dash.Servers[0].Quota.Used != 3 {
		t.Fatalf("expected 3 used this month, got %+v", dash.Servers[0].Quota)
	}
	if len(dash.Upcoming) != 2 || dash.Upcoming[0].ID != today.ID || dash.Upcoming[1].ID != later.ID {
		t.Fatalf("expected today then later in upcoming, got %+v", dash.Upcoming)
	}
	if dash.Upcoming[0].Server == nil || dash.Upcoming[0].Server.Name != h.server.Name {
		t.Fatalf("expected upcoming slots to carry their server")
	}

	outsider := testfixtures.CreateUser(t, h.db)
	dash, err = h.svc.Dashboard(ctx, outsider.ID)
	if err != nil {
		t.Fatalf("dashboard for unassigned user: %v", err)
	}
	if len(dash.Servers) != 0 || len(dash.Upcoming) != 0 {
		t.Fatalf("expected an empty dashboard, got %+v", dash)
	}
}
