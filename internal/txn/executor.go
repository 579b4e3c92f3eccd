// Package txn models the atomic unit of work: a function of reads and
// writes executed indivisibly against the backing store. The Mongo runner
// executes units inside a session transaction, giving each unit a
// consistent snapshot of every document it touches and aborting the whole
// unit on commit-time conflicts.
package txn

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runner executes a unit of work atomically. If fn returns an error the
// unit is aborted and no write it issued becomes observable.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

const (
	maxAttempts  = 4
	retryBackoff = 50 * time.Millisecond
)

// MongoRunner runs units of work inside MongoDB session transactions.
// Transient commit conflicts are retried with exponential backoff; domain
// errors returned by the unit abort immediately and are surfaced verbatim.
type MongoRunner struct {
	client *mongo.Client
	logger *zap.SugaredLogger
}

// NewMongoRunner builds a runner over the given client.
func NewMongoRunner(client *mongo.Client, logger *zap.SugaredLogger) *MongoRunner {
	return &MongoRunner{client: client, logger: logger}
}

func (r *MongoRunner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(maxAttempts, retry.NewExponential(retryBackoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		session, err := r.client.StartSession()
		if err != nil {
			return retry.RetryableError(err)
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, fn(sc)
		})
		if err == nil {
			return nil
		}

		if isTransient(err) {
			r.logger.Warnw("transaction aborted on transient conflict, retrying", "error", err)
			return retry.RetryableError(err)
		}

		return err
	})
}

// isTransient reports whether the error is a store-level conflict worth
// re-running the unit for, as opposed to a domain failure.
func isTransient(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError") ||
			cmdErr.HasErrorLabel("UnknownTransactionCommitResult")
	}

	return mongo.IsTimeout(err)
}
