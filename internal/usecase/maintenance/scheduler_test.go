package maintenance

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockSweeper struct {
	n   int
	err error
}

func (m *mockSweeper) SweepExpired(_ context.Context) (int, error) { return m.n, m.err }

type mockResetter struct {
	n     int
	calls int
}

func (m *mockResetter) ResetDailyLimits(_ context.Context) (int, error) {
	m.calls++
	return m.n, nil
}

// --- Tests ---

func TestRegister_InvalidSchedule(t *testing.T) {
	s := NewScheduler(time.Second, zap.NewNop())

	err := s.Register("bad", "every minute", func(context.Context) (int, error) { return 0, nil })
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if len(s.Status()) != 0 {
		t.Error("invalid job must not be registered")
	}
}

func TestRegister_SecondsFieldRejected(t *testing.T) {
	s := NewScheduler(time.Second, zap.NewNop())

	if err := s.Register("six", "0 */5 * * * *", func(context.Context) (int, error) { return 0, nil }); err == nil {
		t.Fatal("expected 5-field parser to reject 6 fields")
	}
}

func TestRunNow_RecordsStatus(t *testing.T) {
	s := NewScheduler(time.Second, zap.NewNop())
	sweeper := &mockSweeper{n: 7}
	resetter := &mockResetter{n: 3}

	if err := RegisterDefaults(s, sweeper, resetter, Schedules{CacheSweep: "0 * * * *", QuotaReset: "5 0 * * *"}); err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}

	before := testutil.ToFloat64(metrics.MaintenanceRunsTotal.WithLabelValues(JobCacheSweep, "success"))

	n, err := s.RunNow(context.Background(), JobCacheSweep)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7, got %d", n)
	}

	after := testutil.ToFloat64(metrics.MaintenanceRunsTotal.WithLabelValues(JobCacheSweep, "success"))
	if after-before != 1 {
		t.Errorf("expected success counter +1, got %v", after-before)
	}

	status := s.Status()
	if len(status) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(status))
	}
	if status[0].Name != JobCacheSweep || status[1].Name != JobQuotaReset {
		t.Errorf("unexpected order: %s, %s", status[0].Name, status[1].Name)
	}
	if status[0].LastCount != 7 || status[0].LastRun.IsZero() {
		t.Errorf("unexpected status: %+v", status[0])
	}
	if !status[1].LastRun.IsZero() {
		t.Error("quota reset must not have run")
	}
}

func TestRunNow_Error(t *testing.T) {
	s := NewScheduler(time.Second, zap.NewNop())
	boom := errors.New("store down")

	if err := RegisterDefaults(s, &mockSweeper{err: boom}, nil, Schedules{CacheSweep: "@hourly"}); err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}

	_, err := s.RunNow(context.Background(), JobCacheSweep)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if got := s.Status()[0].LastError; got == "" {
		t.Error("expected last error recorded")
	}
}

func TestRunNow_UnknownJob(t *testing.T) {
	s := NewScheduler(time.Second, zap.NewNop())

	if _, err := s.RunNow(context.Background(), "nope"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
	if err := s.SetEnabled("nope", false); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestRegisterDefaults_SkipsEmpty(t *testing.T) {
	s := NewScheduler(time.Second, zap.NewNop())

	if err := RegisterDefaults(s, &mockSweeper{}, &mockResetter{}, Schedules{QuotaReset: "5 0 * * *"}); err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}
	status := s.Status()
	if len(status) != 1 || status[0].Name != JobQuotaReset {
		t.Fatalf("expected only quota reset, got %+v", status)
	}
}

func TestRunScheduled_DisabledSkipped(t *testing.T) {
	s := NewScheduler(time.Second, zap.NewNop())
	resetter := &mockResetter{}

	if err := RegisterDefaults(s, nil, resetter, Schedules{QuotaReset: "5 0 * * *"}); err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}
	if err := s.SetEnabled(JobQuotaReset, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	s.runScheduled(JobQuotaReset)
	if resetter.calls != 0 {
		t.Errorf("disabled job ran %d times", resetter.calls)
	}

	if err := s.SetEnabled(JobQuotaReset, true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	s.runScheduled(JobQuotaReset)
	if resetter.calls != 1 {
		t.Errorf("expected 1 run, got %d", resetter.calls)
	}
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(time.Second, zap.NewNop())
	if err := RegisterDefaults(s, &mockSweeper{}, nil, Schedules{CacheSweep: "0 * * * *"}); err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}

	s.Start()
	if next := s.Status()[0].NextRun; next.IsZero() {
		t.Error("expected next run after start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
