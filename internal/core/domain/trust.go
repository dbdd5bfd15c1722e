package domain

import "time"

// TrustState classifies a recipe's trust record.
type TrustState string

const (
	// TrustMissing means no record exists yet (first run for this recipe).
	TrustMissing TrustState = "missing"
	// TrustOutdated means the computed digest differs from the record: the
	// recipe or an ancestor changed upstream, or was tampered with.
	TrustOutdated TrustState = "outdated"
	// TrustTrusted means the persisted digest matches the parent chain.
	// It is the only state from which a recipe may be executed.
	TrustTrusted TrustState = "trusted"
)

// TrustRecord is the persisted tamper-evidence digest for one recipe. It is
// rewritten only by an explicit trust update, never as a side effect of a
// successful run.
type TrustRecord struct {
	Recipe    RecipeID  `json:"recipe"`
	Digest    string    `json:"digest"`
	UpdatedAt time.Time `json:"updated_at"`
}
