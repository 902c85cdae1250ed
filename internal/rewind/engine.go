package rewind

import "fmt"

// Options tunes an Engine.
type Options struct {
	// StorageMode is the backend preference given to new projects.
	StorageMode StorageMode

	CompressThreshold int64
	InlineFloor       int64

	Retention Policy

	// LockDir enables the cross-process project lock when set.
	LockDir string
}

// DefaultOptions returns the stock engine settings.
func DefaultOptions() Options {
	return Options{
		StorageMode:       ModeAuto,
		CompressThreshold: DefaultCompressThreshold,
		InlineFloor:       DefaultInlineFloor,
		Retention:         DefaultPolicy(),
	}
}

// Engine bundles the components of the undo timeline around one store.
type Engine struct {
	Store     *Store
	Ledger    *Ledger
	Restorer  *Restorer
	Retention *Retention
	Recorder  *Recorder
}

// NewEngine wires the components together.
func NewEngine(database Database, backends []Backend, workspace Workspace, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator, opts Options) (*Engine, error) {
	if err := opts.Retention.Validate(); err != nil {
		return nil, err
	}
	if opts.StorageMode == "" {
		opts.StorageMode = ModeAuto
	}

	store, err := NewStore(database, backends, encryptor, logger, clock, opts.CompressThreshold, opts.InlineFloor)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	ledger := NewLedger(database, NewProjectLocks(opts.LockDir), logger, clock, idgen, opts.StorageMode)
	return &Engine{
		Store:     store,
		Ledger:    ledger,
		Restorer:  NewRestorer(ledger, store, workspace, logger),
		Retention: NewRetention(database, store, opts.Retention, logger, clock),
		Recorder:  NewRecorder(ledger, store, logger),
	}, nil
}

// Close releases the store's resources. The database is owned by the caller.
func (e *Engine) Close() error {
	return e.Store.Close()
}
