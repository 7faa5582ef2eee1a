package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/updownlabs/updown/internal/domain"
)

// Archiver writes resolved-round snapshots to object storage under
// rounds/{market}/{roundID}.json so resolved history survives restarts of
// the in-memory ledger.
type Archiver struct {
	writer *Writer
}

// NewArchiver creates an Archiver using the given writer.
func NewArchiver(w *Writer) *Archiver {
	return &Archiver{writer: w}
}

// ArchiveRound uploads one round snapshot.
func (a *Archiver) ArchiveRound(ctx context.Context, r domain.Round) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("s3blob: marshal round %s/%d: %w", r.MarketID, r.ID, err)
	}

	key := fmt.Sprintf("rounds/%s/%d.json", r.MarketID, r.ID)
	if err := a.writer.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive round %s/%d: %w", r.MarketID, r.ID, err)
	}
	return nil
}
