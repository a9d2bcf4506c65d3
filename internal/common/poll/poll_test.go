package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	value   string
	verdict Verdict
	err     error
}

func scripted(steps []step, calls *int) CheckFunc[string] {
	return func(ctx context.Context, attempt int) (string, Verdict, error) {
		*calls++
		s := steps[attempt-1]
		return s.value, s.verdict, s.err
	}
}

func TestUntil(t *testing.T) {
	errBroken := errors.New("broken")
	pending := step{verdict: Continue}

	thirty := make([]step, 30)
	for i := range thirty {
		thirty[i] = pending
	}

	tests := []struct {
		name         string
		steps        []step
		maxAttempts  int
		wantOutcome  Outcome
		wantValue    string
		wantAttempts int
		wantErr      error
	}{
		{
			name:         "succeeds on third check",
			steps:        []step{pending, pending, {value: "done", verdict: Done}},
			maxAttempts:  30,
			wantOutcome:  Succeeded,
			wantValue:    "done",
			wantAttempts: 3,
		},
		{
			name:         "exhausts the budget",
			steps:        thirty,
			maxAttempts:  30,
			wantOutcome:  TimedOut,
			wantAttempts: 30,
		},
		{
			name:         "aborts on terminal failure",
			steps:        []step{pending, {verdict: Abort, err: errBroken}},
			maxAttempts:  30,
			wantOutcome:  Failed,
			wantAttempts: 2,
			wantErr:      errBroken,
		},
		{
			name:         "transient error is kept for the timeout",
			steps:        []step{{verdict: Continue, err: errBroken}, pending},
			maxAttempts:  2,
			wantOutcome:  TimedOut,
			wantAttempts: 2,
			wantErr:      errBroken,
		},
		{
			name:         "zero budget never checks",
			steps:        nil,
			maxAttempts:  0,
			wantOutcome:  TimedOut,
			wantAttempts: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			res := Until(context.Background(), scripted(tt.steps, &calls), time.Millisecond, tt.maxAttempts)

			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.Equal(t, tt.wantValue, res.Value)
			assert.Equal(t, tt.wantAttempts, res.Attempts)
			assert.Equal(t, tt.wantAttempts, calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
			}
		})
	}
}

func TestUntil_WaitsBeforeEachCheck(t *testing.T) {
	calls := 0
	start := time.Now()
	res := Until(context.Background(), scripted([]step{{verdict: Continue}, {value: "ok", verdict: Done}}, &calls), 20*time.Millisecond, 5)

	require.Equal(t, Succeeded, res.Outcome)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestUntil_ContextCancelledFailsClosed(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	calls := 0
	check := func(ctx context.Context, attempt int) (string, Verdict, error) {
		calls++
		return "", Continue, nil
	}

	res := Until[string](ctx, check, 20*time.Millisecond, 100)

	assert.Equal(t, TimedOut, res.Outcome)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Less(t, calls, 100)
	assert.Equal(t, calls, res.Attempts)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "timed_out", TimedOut.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}
