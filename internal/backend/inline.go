package backend

import (
	"context"
	"encoding/base64"
	"fmt"

	"rewind-go/internal/rewind"
)

// InlineBackend keeps small payloads in the backup row itself: the ref is the
// base64 encoded payload.
type InlineBackend struct{}

var _ rewind.Backend = InlineBackend{}

func (InlineBackend) Kind() rewind.BackendKind { return rewind.BackendInline }

func (InlineBackend) Probe(ctx context.Context, projectPath string) error { return nil }

func (InlineBackend) Put(ctx context.Context, hash string, data []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(data), nil
}

func (InlineBackend) Get(ctx context.Context, ref string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ref)
	if err != nil {
		return nil, fmt.Errorf("decoding inline payload: %w", err)
	}
	return data, nil
}

// Delete is a no-op; the payload goes away with its row.
func (InlineBackend) Delete(ctx context.Context, ref string) error { return nil }
