package booking

import (
	"context"
	"testing"
	"time"
)

func newTestPlanner(bookings *stubBookingRepo, exceptions *stubExceptionRepo) *AvailabilityPlanner {
	resolver := NewExceptionResolver(exceptions)
	detector := NewConflictDetector(bookings, resolver, testExpander)
	return NewAvailabilityPlanner(bookings, detector, resolver, testExpander)
}

func TestListAvailableEmptyCalendar(t *testing.T) {
	planner := newTestPlanner(newStubBookingRepo(), newStubExceptionRepo())
	ctx := context.Background()

	// Monday 2025-01-20, one day, 60-minute slots.
	day := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	slots, err := planner.ListAvailable(ctx, "res-1", day, day, time.Hour)
	if err != nil {
		t.Fatalf("ListAvailable returned error: %v", err)
	}

	// 09:00 through 16:00 starts on the half hour: 15 slots.
	if len(slots) != 15 {
		t.Fatalf("slot count = %d, want 15", len(slots))
	}
	first := slots[0]
	if first.Start.Hour() != 9 || first.Start.Minute() != 0 {
		t.Fatalf("first slot starts at %v, want 09:00", first.Start)
	}
	last := slots[len(slots)-1]
	if last.End.Hour() != 17 || last.End.Minute() != 0 {
		t.Fatalf("last slot ends at %v, want 17:00", last.End)
	}
}

func TestListAvailableSkipsWeekends(t *testing.T) {
	planner := newTestPlanner(newStubBookingRepo(), newStubExceptionRepo())
	ctx := context.Background()

	// Saturday and Sunday 2025-01-18/19.
	saturday := time.Date(2025, time.January, 18, 0, 0, 0, 0, time.UTC)
	slots, err := planner.ListAvailable(ctx, "res-1", saturday, saturday.AddDate(0, 0, 1), time.Hour)
	if err != nil {
		t.Fatalf("ListAvailable returned error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("weekend produced %d slots, want 0", len(slots))
	}
}

func TestListAvailableExcludesBookedSlots(t *testing.T) {
	bookings := newStubBookingRepo()
	planner := newTestPlanner(bookings, newStubExceptionRepo())
	ctx := context.Background()

	day := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	booked := day.Add(10 * time.Hour) // 10:00 to 11:00
	mustCreate(t, bookings, singleBooking("bk-1", booked, booked.Add(time.Hour)))

	slots, err := planner.ListAvailable(ctx, "res-1", day, day, time.Hour)
	if err != nil {
		t.Fatalf("ListAvailable returned error: %v", err)
	}

	for _, slot := range slots {
		if slot.Start.Before(booked.Add(time.Hour)) && slot.End.After(booked) {
			t.Fatalf("slot %v..%v overlaps the booked interval", slot.Start, slot.End)
		}
	}

	// 09:00, 09:30 fit before; slots resume at 11:00. Three starts are lost
	// (10:00, and the straddling 09:30+60 is kept out too: 09:30..10:30).
	if len(slots) != 12 {
		t.Fatalf("slot count = %d, want 12", len(slots))
	}
}

func TestSuggestNextSkipsWeekend(t *testing.T) {
	planner := newTestPlanner(newStubBookingRepo(), newStubExceptionRepo())
	ctx := context.Background()

	// Friday 2025-01-17 16:30; a 60-minute meeting no longer fits that day.
	preferred := time.Date(2025, time.January, 17, 16, 30, 0, 0, time.UTC)
	slots, err := planner.SuggestNext(ctx, "res-1", preferred, preferred.Add(time.Hour), 1)
	if err != nil {
		t.Fatalf("SuggestNext returned error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("suggestion count = %d, want 1", len(slots))
	}

	// First fitting slot is Monday 09:00.
	want := time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)
	if !slots[0].Start.Equal(want) {
		t.Fatalf("suggested start = %v, want %v", slots[0].Start, want)
	}
}

func TestSuggestNextStepsPastConflicts(t *testing.T) {
	bookings := newStubBookingRepo()
	planner := newTestPlanner(bookings, newStubExceptionRepo())
	ctx := context.Background()

	// Monday 09:00 to 10:00 is taken.
	preferred := time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)
	mustCreate(t, bookings, singleBooking("bk-1", preferred, preferred.Add(time.Hour)))

	slots, err := planner.SuggestNext(ctx, "res-1", preferred, preferred.Add(time.Hour), 3)
	if err != nil {
		t.Fatalf("SuggestNext returned error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("suggestion count = %d, want 3", len(slots))
	}
	if !slots[0].Start.Equal(preferred.Add(time.Hour)) {
		t.Fatalf("first suggestion = %v, want 10:00", slots[0].Start)
	}
	for _, slot := range slots {
		if slot.Start.Before(preferred.Add(time.Hour)) {
			t.Fatalf("suggestion %v overlaps the taken slot", slot.Start)
		}
	}
}

func TestSummarizeEmptyRange(t *testing.T) {
	planner := newTestPlanner(newStubBookingRepo(), newStubExceptionRepo())
	ctx := context.Background()

	// Monday through Friday.
	start := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.January, 24, 23, 59, 59, 0, time.UTC)

	summary, err := planner.Summarize(ctx, "res-1", start, end)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if summary.TotalBusinessHours != 40 {
		t.Fatalf("total business hours = %v, want 40", summary.TotalBusinessHours)
	}
	if summary.BookedHours != 0 || summary.UtilizationRate != 0 {
		t.Fatalf("empty range reported booked=%v rate=%v", summary.BookedHours, summary.UtilizationRate)
	}
	if len(summary.AvailableDays) != 5 || len(summary.BusyDays) != 0 {
		t.Fatalf("day lists = busy %v / available %v", summary.BusyDays, summary.AvailableDays)
	}
}

func TestSummarizeCountsSinglesAndRecurring(t *testing.T) {
	bookings := newStubBookingRepo()
	planner := newTestPlanner(bookings, newStubExceptionRepo())
	ctx := context.Background()

	start := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.January, 24, 23, 59, 59, 0, time.UTC)

	// Two hours on Monday.
	monday := start.Add(9 * time.Hour)
	mustCreate(t, bookings, singleBooking("bk-1", monday, monday.Add(2*time.Hour)))

	// 30 minutes every weekday.
	anchor := time.Date(2025, time.January, 20, 14, 0, 0, 0, time.UTC)
	mustCreate(t, bookings, templateBooking("tmpl-1", "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR", anchor, anchor.Add(30*time.Minute)))

	summary, err := planner.Summarize(ctx, "res-1", start, end)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}

	// 2h single + 5 * 0.5h recurring = 4.5h.
	if summary.BookedHours != 4.5 {
		t.Fatalf("booked hours = %v, want 4.5", summary.BookedHours)
	}
	if summary.AvailableHours != 35.5 {
		t.Fatalf("available hours = %v, want 35.5", summary.AvailableHours)
	}
	if len(summary.BusyDays) != 5 || len(summary.AvailableDays) != 0 {
		t.Fatalf("day lists = busy %v / available %v", summary.BusyDays, summary.AvailableDays)
	}

	wantRate := 4.5 / 40 * 100
	if diff := summary.UtilizationRate - wantRate; diff > 0.0001 || diff < -0.0001 {
		t.Fatalf("utilization rate = %v, want %v", summary.UtilizationRate, wantRate)
	}
}

func TestSummarizeSkipsCancelledOccurrences(t *testing.T) {
	bookings := newStubBookingRepo()
	exceptions := newStubExceptionRepo()
	planner := newTestPlanner(bookings, exceptions)
	ctx := context.Background()

	start := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.January, 24, 23, 59, 59, 0, time.UTC)

	anchor := time.Date(2025, time.January, 20, 14, 0, 0, 0, time.UTC)
	mustCreate(t, bookings, templateBooking("tmpl-1", "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR", anchor, anchor.Add(time.Hour)))

	// Cancel Wednesday.
	exceptions.UpsertException(ctx, BookingException{
		ID:            "exc-1",
		BookingID:     "tmpl-1",
		ExceptionDate: time.Date(2025, time.January, 22, 0, 0, 0, 0, time.UTC),
		ExceptionType: ExceptionCancelled,
	})

	summary, err := planner.Summarize(ctx, "res-1", start, end)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if summary.BookedHours != 4 {
		t.Fatalf("booked hours = %v, want 4 after one cancelled occurrence", summary.BookedHours)
	}
	if len(summary.BusyDays) != 4 {
		t.Fatalf("busy days = %v, want 4 entries", summary.BusyDays)
	}
	for _, day := range summary.AvailableDays {
		if day != "2025-01-22" {
			t.Fatalf("available day = %s, want 2025-01-22", day)
		}
	}
}

func TestAlignToBusinessHours(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "before open snaps to open",
			in:   time.Date(2025, time.January, 20, 7, 15, 0, 0, time.UTC),
			want: time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "inside business hours unchanged",
			in:   time.Date(2025, time.January, 20, 13, 30, 0, 0, time.UTC),
			want: time.Date(2025, time.January, 20, 13, 30, 0, 0, time.UTC),
		},
		{
			name: "after close moves to next morning",
			in:   time.Date(2025, time.January, 20, 17, 0, 0, 0, time.UTC),
			want: time.Date(2025, time.January, 21, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "friday evening moves to monday",
			in:   time.Date(2025, time.January, 17, 18, 0, 0, 0, time.UTC),
			want: time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "saturday moves to monday",
			in:   time.Date(2025, time.January, 18, 11, 0, 0, 0, time.UTC),
			want: time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := alignToBusinessHours(tc.in)
			if !got.Equal(tc.want) {
				t.Fatalf("alignToBusinessHours(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
