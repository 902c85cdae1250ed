package testutil

import (
	"testing"

	"rewind-go/internal/backend"
	"rewind-go/internal/database"
	"rewind-go/internal/rewind"
)

// Harness is an Engine over in-memory collaborators, with handles on each so
// tests can inspect and steer them.
type Harness struct {
	*rewind.Engine

	DB        *database.SQLiteDatabase
	Backend   *backend.MemoryBackend
	Workspace *MemoryWorkspace
	Clock     *StubClock
}

// NewHarness builds an Engine with default options.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	return NewHarnessWithOptions(t, rewind.DefaultOptions(), nil)
}

// NewHarnessWithOptions builds an Engine with opts and encryptor, which may be nil.
func NewHarnessWithOptions(t *testing.T, opts rewind.Options, encryptor rewind.Encryptor) *Harness {
	t.Helper()

	db := NewTestDatabase(t)
	mem, backends := NewTestBackends()
	ws := NewMemoryWorkspace()
	clock := FixedClock()

	engine, err := rewind.NewEngine(db, backends, ws, encryptor, rewind.NewNopLogger(), clock, NewStubIDGenerator(), opts)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
	})

	return &Harness{
		Engine:    engine,
		DB:        db,
		Backend:   mem,
		Workspace: ws,
		Clock:     clock,
	}
}
