package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	hourly, err := Parse("0 * * * *")
	if err != nil {
		t.Fatalf("parse cron: %v", err)
	}
	if got := hourly.Next(now, time.Time{}); !got.Equal(time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("cron next = %v", got)
	}

	interval, err := Parse("with 10m interval")
	if err != nil {
		t.Fatalf("parse interval: %v", err)
	}
	if got := interval.Next(now, time.Time{}); !got.Equal(now) {
		t.Fatalf("first interval run should be immediate, got %v", got)
	}
	if got := interval.Next(now, now.Add(-time.Minute)); !got.Equal(now.Add(9 * time.Minute)) {
		t.Fatalf("interval next = %v", got)
	}

	manual, _ := Parse("manual")
	if !manual.Next(now, time.Time{}).Equal(Never) {
		t.Fatalf("manual schedules never run")
	}

	for _, bad := range []string{"with 10 interval", "with -1s interval", "not a cron"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("%q should not parse", bad)
		}
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSchedulerTick(t *testing.T) {
	c := &clock{now: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)}
	s := New(WithClock(c.Now))
	ctx := context.Background()

	var hourly, once int
	if err := s.Add("reminders", "0 * * * *", func(context.Context) error { hourly++; return nil }); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("reminders", "@daily", nil); err == nil {
		t.Fatalf("duplicate job names should fail")
	}
	s.Once("migrate", func(context.Context) error { once++; return errors.New("partial") })

	s.Tick(ctx)
	if hourly != 0 || once != 1 {
		t.Fatalf("after first tick hourly=%d once=%d", hourly, once)
	}
	if _, ok := s.Next("migrate"); ok {
		t.Fatalf("one-off job should be removed after running")
	}

	next, ok := s.Next("reminders")
	if !ok || !next.Equal(time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("next reminder run = %v", next)
	}

	c.Advance(31 * time.Minute)
	s.Tick(ctx)
	s.Tick(ctx)
	if hourly != 1 {
		t.Fatalf("hourly job should run once per hour, ran %d", hourly)
	}

	if err := s.Trigger("reminders"); err != nil {
		t.Fatal(err)
	}
	s.Tick(ctx)
	if hourly != 2 {
		t.Fatalf("triggered job should run, ran %d", hourly)
	}
	jobs := s.Jobs()
	if len(jobs) != 1 || jobs[0].Name != "reminders" || jobs[0].Schedule != "0 * * * *" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
	if err := s.Trigger("missing"); err == nil {
		t.Fatalf("unknown job should fail")
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	s := New(WithPollInterval(5 * time.Millisecond))
	ran := make(chan struct{}, 1)
	s.Once("ping", func(context.Context) error {
		ran <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("one-off job did not run")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
