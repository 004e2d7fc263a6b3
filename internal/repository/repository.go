package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecoleta/ecoleta-api/pkg/apperrors"
	"go.mongodb.org/mongo-driver/mongo"
)

// wrapMongoErr maps driver failures onto the API error taxonomy. Timeouts
// and cancellations become Unavailable so callers know the operation can be
// retried; everything else stays a plain wrapped error.
func wrapMongoErr(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || mongo.IsTimeout(err) {
		return apperrors.Wrap(apperrors.KindUnavailable, message, err)
	}
	return fmt.Errorf("%s: %v", message, err)
}
