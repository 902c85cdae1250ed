package rewind_test

import (
	"testing"

	"rewind-go/internal/rewind"
	"rewind-go/internal/testutil"
)

func TestNewEngine_RejectsInvalidPolicy(t *testing.T) {
	opts := rewind.DefaultOptions()
	opts.Retention.DailyDays = -1

	_, err := rewind.NewEngine(testutil.NewTestDatabase(t), nil, testutil.NewMemoryWorkspace(), nil,
		rewind.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator(), opts)
	if err == nil {
		t.Fatal("NewEngine() expected error for negative retention window")
	}
}
