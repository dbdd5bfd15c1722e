package trust

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/zeebo/blake3"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

// Verifier compares the digest of a recipe's resolved parent chain against
// the persisted trust record.
type Verifier struct {
	resolver ports.ChainResolver
	store    *Store
	log      ports.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(resolver ports.ChainResolver, store *Store, log ports.Logger) *Verifier {
	return &Verifier{
		resolver: resolver,
		store:    store,
		log:      log,
	}
}

// Verify reports the recipe's trust state. No record means Missing; a
// digest mismatch means Outdated. Only Trusted permits execution.
func (v *Verifier) Verify(ctx context.Context, id domain.RecipeID) (domain.TrustState, error) {
	record, ok := v.store.Get(id)
	if !ok {
		return domain.TrustMissing, nil
	}

	digest, err := v.chainDigest(ctx, id)
	if err != nil {
		return "", err
	}
	if digest != record.Digest {
		v.log.Warn("trust digest mismatch", "recipe", string(id))
		return domain.TrustOutdated, nil
	}
	return domain.TrustTrusted, nil
}

// Update recomputes and persists the digest, transitioning the recipe to
// Trusted. This is always an explicit operator action; a successful run
// never updates trust by itself.
func (v *Verifier) Update(ctx context.Context, id domain.RecipeID) (domain.TrustRecord, error) {
	digest, err := v.chainDigest(ctx, id)
	if err != nil {
		return domain.TrustRecord{}, err
	}

	record := domain.TrustRecord{
		Recipe:    id,
		Digest:    digest,
		UpdatedAt: time.Now().UTC(),
	}
	if err := v.store.Put(record); err != nil {
		return domain.TrustRecord{}, err
	}
	v.log.Info("trust record updated", "recipe", string(id))
	return record, nil
}

// chainDigest hashes every file of the parent chain: for each file the
// path, a NUL, the content hash, then a NUL closing the section. Renaming
// or reordering chain files changes the digest as much as editing them.
func (v *Verifier) chainDigest(ctx context.Context, id domain.RecipeID) (string, error) {
	chain, err := v.resolver.ResolveChain(ctx, id)
	if err != nil {
		return "", err
	}

	hasher := blake3.New()
	for _, path := range chain {
		_, _ = hasher.Write([]byte(path))
		_, _ = hasher.Write([]byte{0})

		sum, err := fileDigest(path)
		if err != nil {
			return "", err
		}
		_, _ = hasher.Write(sum)
		_, _ = hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the chain resolver
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open chain file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to hash chain file"), "path", path)
	}
	return hasher.Sum(nil), nil
}
