// Package export builds the portable audit artifact: parsed records,
// custody chains, and a verification hash over the whole document.
package export

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"

	scanmodels "chaintrace/internal/scan/models"
	"chaintrace/internal/tracking/chain"
	"chaintrace/internal/tracking/models"
	dErrors "chaintrace/pkg/domain-errors"
)

// Artifact is the export document. VerificationHash covers every other
// field, so the whole bundle is tamper-evident in transit.
type Artifact struct {
	ExportedAt       time.Time                  `json:"exported_at"`
	Records          []*scanmodels.ParsedRecord `json:"records"`
	Transactions     []*models.Transaction      `json:"transactions"`
	VerificationHash string                     `json:"verification_hash"`
}

// Filename returns the artifact filename for the given export date.
func Filename(at time.Time) string {
	return fmt.Sprintf("chaintrace-export-%s.json", at.UTC().Format("2006-01-02"))
}

// Build assembles and seals an artifact.
func Build(at time.Time, records []*scanmodels.ParsedRecord, transactions []*models.Transaction) (*Artifact, error) {
	a := &Artifact{
		ExportedAt:   at.UTC(),
		Records:      records,
		Transactions: transactions,
	}
	hash, err := contentHash(a)
	if err != nil {
		return nil, err
	}
	a.VerificationHash = hash
	return a, nil
}

// Verify checks a (possibly reimported) artifact: the document hash must
// match and every custody chain must still re-verify.
func Verify(hasher chain.Hasher, a *Artifact) error {
	hash, err := contentHash(a)
	if err != nil {
		return err
	}
	if hash != a.VerificationHash {
		return dErrors.New(dErrors.CodeIntegrity, "export artifact hash mismatch")
	}
	for _, tx := range a.Transactions {
		if err := chain.Verify(hasher, tx.Events); err != nil {
			return dErrors.Wrap(err, dErrors.CodeIntegrity,
				fmt.Sprintf("custody chain for transaction %s failed verification", tx.ID))
		}
	}
	return nil
}

// contentHash digests the canonical JSON of the artifact with its
// verification hash blanked. JSON map keys serialize sorted, so the
// encoding is deterministic across round trips.
func contentHash(a *Artifact) (string, error) {
	unsealed := *a
	unsealed.VerificationHash = ""
	payload, err := json.Marshal(&unsealed)
	if err != nil {
		return "", fmt.Errorf("marshal export artifact: %w", err)
	}
	sum := sha3.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
