package ingest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
)

// ImportHash fingerprints a draft over date, unsigned amount and description, case-insensitively.
func ImportHash(d Draft) string {
	key := strings.ToLower(fmt.Sprintf("%s|%s|%s",
		d.Date.UTC().Format("2006-01-02"),
		d.Amount.Abs().StringFixed(2),
		strings.TrimSpace(d.Description),
	))
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// KnownTransactions answers which fingerprints an owner already stores.
type KnownTransactions interface {
	ExistingImportHashes(ctx context.Context, userID string, hashes []string) (map[string]bool, error)
	ExistingExternalIDs(ctx context.Context, userID string, externalIDs []string) (map[string]bool, error)
}

type Deduplicator struct {
	known KnownTransactions
}

func NewDeduplicator(known KnownTransactions) *Deduplicator {
	return &Deduplicator{known: known}
}

// Batch tracks duplicates for one import. It is not safe for concurrent use.
type Batch struct {
	hashes      map[string]bool
	externalIDs map[string]bool
}

// Begin loads the fingerprints the owner already has for the given drafts.
func (d *Deduplicator) Begin(ctx context.Context, userID string, drafts []Draft) (*Batch, error) {
	hashes := make([]string, 0, len(drafts))
	var externalIDs []string
	for _, draft := range drafts {
		hashes = append(hashes, ImportHash(draft))
		if draft.ExternalID != "" {
			externalIDs = append(externalIDs, draft.ExternalID)
		}
	}

	existingHashes, err := d.known.ExistingImportHashes(ctx, userID, hashes)
	if err != nil {
		return nil, financeErrors.NewPersistenceError("lookup import hashes", err)
	}
	existingExternal := map[string]bool{}
	if len(externalIDs) > 0 {
		existingExternal, err = d.known.ExistingExternalIDs(ctx, userID, externalIDs)
		if err != nil {
			return nil, financeErrors.NewPersistenceError("lookup external ids", err)
		}
	}

	batch := &Batch{hashes: make(map[string]bool, len(existingHashes)), externalIDs: make(map[string]bool, len(existingExternal))}
	for hash, ok := range existingHashes {
		if ok {
			batch.hashes[hash] = true
		}
	}
	for id, ok := range existingExternal {
		if ok {
			batch.externalIDs[id] = true
		}
	}
	return batch, nil
}

// Check returns the draft's hash, or a DuplicateError when the owner already has it or the
// same batch produced it earlier. Accepted drafts are remembered.
func (b *Batch) Check(d Draft) (string, error) {
	hash := ImportHash(d)
	if d.ExternalID != "" && b.externalIDs[d.ExternalID] {
		return hash, &financeErrors.DuplicateError{Hash: hash, ExternalID: d.ExternalID}
	}
	if b.hashes[hash] {
		return hash, &financeErrors.DuplicateError{Hash: hash}
	}
	b.hashes[hash] = true
	if d.ExternalID != "" {
		b.externalIDs[d.ExternalID] = true
	}
	return hash, nil
}
