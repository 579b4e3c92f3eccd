// Package validator holds the pure consistency checks used by the payment
// request lifecycle and by offline ledger audits. Nothing here performs
// I/O; every function is deterministic in its inputs and reports problems
// through a Result instead of failing.
package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/baytalmal/treasury-gobackend/internal/models"
)

// Reference prefixes tag identifiers with the entity kind they refer to.
// The rest of the reference is the hex object id assigned by the store,
// which also encodes the creation time of the entity.
const (
	RequestRefPrefix     = "req_"
	PaymentRefPrefix     = "pay_"
	CategoryRefPrefix    = "cat_"
	BeneficiaryRefPrefix = "ben_"
)

// Result is the outcome of a validation pass. Callers decide how to react;
// validation itself never aborts anything.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func failure(errs []string) Result {
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// TransactionMetadata is the required descriptive context for a ledger
// movement.
type TransactionMetadata struct {
	Timestamp   time.Time
	Description string
	Type        string
}

// Movement is a single ledger movement from a source account to a
// destination account.
type Movement struct {
	SourceID      string
	DestinationID string
	Amount        decimal.Decimal
}

// ParseRef splits a tagged reference into its entity prefix and object id.
// It fails if the prefix is not one of the known kinds or the id part is
// not a valid object id.
func ParseRef(ref string) (prefix string, id primitive.ObjectID, err error) {
	for _, p := range []string{RequestRefPrefix, PaymentRefPrefix, CategoryRefPrefix, BeneficiaryRefPrefix} {
		if strings.HasPrefix(ref, p) {
			id, err = primitive.ObjectIDFromHex(strings.TrimPrefix(ref, p))
			if err != nil {
				return "", primitive.NilObjectID, fmt.Errorf("reference %q: %w", ref, err)
			}
			return p, id, nil
		}
	}
	return "", primitive.NilObjectID, fmt.Errorf("reference %q has no known entity prefix", ref)
}

// ValidateTransaction checks a single prospective ledger movement: both
// identifiers must be well-formed references, the amount must be positive
// and covered by the source balance, and the metadata must be complete
// with a timestamp that is not in the future.
func ValidateTransaction(sourceID, destinationID string, amount, sourceBalance decimal.Decimal, meta TransactionMetadata) Result {
	var errs []string

	if _, _, err := ParseRef(sourceID); err != nil {
		errs = append(errs, "source: "+err.Error())
	}
	if _, _, err := ParseRef(destinationID); err != nil {
		errs = append(errs, "destination: "+err.Error())
	}

	if !amount.IsPositive() {
		errs = append(errs, fmt.Sprintf("amount must be greater than zero, got %s", amount))
	} else if amount.GreaterThan(sourceBalance) {
		errs = append(errs, fmt.Sprintf("amount %s exceeds source balance %s", amount, sourceBalance))
	}

	if meta.Timestamp.IsZero() {
		errs = append(errs, "metadata timestamp is required")
	} else if meta.Timestamp.After(time.Now()) {
		errs = append(errs, "metadata timestamp is in the future")
	}
	if strings.TrimSpace(meta.Description) == "" {
		errs = append(errs, "metadata description is required")
	}
	if strings.TrimSpace(meta.Type) == "" {
		errs = append(errs, "metadata type is required")
	}

	return failure(errs)
}

// ValidateStatusTransition checks the identifiers and target status of a
// request/payment pairing. The reference prefixes must match the expected
// entity kinds, the status must be a known lifecycle state, and the
// payment's creation time (derived from its reference) must not precede
// the request's.
func ValidateStatusTransition(requestRef, paymentRef string, status models.RequestStatus) Result {
	var errs []string

	reqPrefix, reqID, err := ParseRef(requestRef)
	if err != nil {
		errs = append(errs, err.Error())
	} else if reqPrefix != RequestRefPrefix {
		errs = append(errs, fmt.Sprintf("reference %q does not refer to a request", requestRef))
	}

	payPrefix, payID, err := ParseRef(paymentRef)
	if err != nil {
		errs = append(errs, err.Error())
	} else if payPrefix != PaymentRefPrefix {
		errs = append(errs, fmt.Sprintf("reference %q does not refer to a payment", paymentRef))
	}

	if !status.IsValid() {
		errs = append(errs, fmt.Sprintf("unknown status %q", status))
	}

	if len(errs) == 0 && payID.Timestamp().Before(reqID.Timestamp()) {
		errs = append(errs, fmt.Sprintf("payment date %s precedes request date %s",
			payID.Timestamp().Format(time.RFC3339), reqID.Timestamp().Format(time.RFC3339)))
	}

	return failure(errs)
}

// ValidateBalances replays an ordered sequence of movements against the
// given starting balances and reports every point at which a source
// account is unknown or would be driven negative. Destinations absent from
// the starting set are created with a zero balance. Used as an offline
// consistency checker.
func ValidateBalances(movements []Movement, initialBalances map[string]decimal.Decimal) Result {
	var errs []string

	balances := make(map[string]decimal.Decimal, len(initialBalances))
	for id, b := range initialBalances {
		balances[id] = b
	}

	for i, m := range movements {
		if !m.Amount.IsPositive() {
			errs = append(errs, fmt.Sprintf("movement %d: amount must be greater than zero, got %s", i, m.Amount))
			continue
		}

		src, ok := balances[m.SourceID]
		if !ok {
			errs = append(errs, fmt.Sprintf("movement %d: unknown source account %s", i, m.SourceID))
			continue
		}

		next := src.Sub(m.Amount)
		if next.IsNegative() {
			errs = append(errs, fmt.Sprintf("movement %d: account %s would go negative (%s)", i, m.SourceID, next))
			continue
		}

		balances[m.SourceID] = next
		balances[m.DestinationID] = balances[m.DestinationID].Add(m.Amount)
	}

	return failure(errs)
}
