package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/unimart-ng/marketplace-backend/pkg/logger"
	"github.com/unimart-ng/marketplace-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type testJob struct {
	name  string
	err   error
	panic bool
	runs  int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	if t.panic {
		panic("nil vendor")
	}
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metrics.NewCronMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return svc
}

func TestRunCycleRunsEveryJobAndCombinesErrors(t *testing.T) {
	ok := &testJob{name: "subscription_expiry"}
	failing := &testJob{name: "order_ttl", err: errors.New("db down")}
	panicking := &testJob{name: "outbox_retention", panic: true}
	lock := &fakeLock{}
	svc := newTestService(t, lock, ok, failing, panicking)

	err := svc.runCycle(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorContains(t, err, "order_ttl: db down")
	assert.ErrorContains(t, err, "outbox_retention: panic: nil vendor")
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, panicking.runs)
	assert.Equal(t, 1, lock.released)
	assert.False(t, lock.held)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "subscription_expiry"}
	svc := newTestService(t, &fakeLock{held: true}, job)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunCycleSkipsRemainingJobsAfterTimeout(t *testing.T) {
	slow := &slowJob{}
	after := &testJob{name: "after"}
	svc := newTestService(t, &fakeLock{}, slow, after)
	svc.cycleTimeout = 10 * time.Millisecond

	err := svc.runCycle(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "after: skipped")
	assert.Zero(t, after.runs)
}

type slowJob struct{}

func (slowJob) Name() string { return "slow" }

func (slowJob) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry(&testJob{name: "a"}, nil)
	require.Error(t, r.Register(&testJob{name: "a"}))
	require.NoError(t, r.Register(&testJob{name: "b"}))

	jobs := r.Jobs()
	require.Len(t, jobs, 2)
	jobs[0] = nil
	assert.NotNil(t, r.Jobs()[0], "Jobs must return a copy")
}
