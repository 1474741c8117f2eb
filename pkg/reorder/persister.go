package reorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"post-reorder-backend/pkg/database"
	"post-reorder-backend/pkg/models"

	"go.uber.org/zap"
)

// NonceVerifier checks an anti-forgery token for a principal and action.
type NonceVerifier interface {
	Verify(nonce, userID, action string) error
}

// TargetResolver finds the reorder page configured for a post type.
type TargetResolver interface {
	Target(postType string) (models.ReorderTarget, bool)
}

// PersistRequest is one post_sort call.
type PersistRequest struct {
	UserID   string
	Nonce    string
	Order    string
	PostType string
}

// Persister validates submissions and writes the resulting menu_order values.
type Persister struct {
	store   database.DatabaseInterface
	nonces  NonceVerifier
	targets TargetResolver
	action  string
	logger  *zap.Logger
}

// NewPersister wires a persister; action is the nonce action submissions must carry.
func NewPersister(store database.DatabaseInterface, nonces NonceVerifier, targets TargetResolver, action string, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{
		store:   store,
		nonces:  nonces,
		targets: targets,
		action:  action,
		logger:  logger.Named("reorder"),
	}
}

// Persist runs the whole post_sort contract. The token is checked before
// anything else and a failure stops processing. Writes are best-effort per
// item: the returned report is always meaningful once writes have started,
// and a partial or empty result is additionally signalled through
// ErrPartialWrite or ErrNothingWritten.
func (p *Persister) Persist(ctx context.Context, req PersistRequest) (models.ReorderReport, error) {
	if err := p.nonces.Verify(req.Nonce, req.UserID, p.action); err != nil {
		p.logger.Warn("rejected reorder submission", zap.String("user", req.UserID), zap.Error(err))
		return models.ReorderReport{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	target, ok := p.targets.Target(req.PostType)
	if !ok {
		return models.ReorderReport{}, fmt.Errorf("%w: %q", ErrUnknownTarget, req.PostType)
	}

	sub, err := ParseSubmission(req.Order, target.MaxLevels)
	if err != nil {
		return models.ReorderReport{}, err
	}
	if sub.Len() == 0 {
		return models.NewReorderReport(0, 0, nil), nil
	}

	// A submission cannot be retracted once accepted: finish the batch even
	// if the client goes away.
	ctx = context.WithoutCancel(ctx)

	ids := sub.IDs()
	inScope, err := p.store.FilterInScope(ctx, target.PostType, target.PostStatus, ids)
	if err != nil {
		return models.ReorderReport{}, fmt.Errorf("scope check failed: %w", err)
	}
	var outside []int64
	for _, id := range ids {
		if !inScope[id] {
			outside = append(outside, id)
		}
	}
	if len(outside) > 0 {
		return models.ReorderReport{}, &OutOfScopeError{PostType: target.PostType, PostStatus: target.PostStatus, IDs: outside}
	}

	start := time.Now()
	report := p.store.ApplyOrder(ctx, sub.Assignments())
	for _, f := range report.Failures {
		p.logger.Warn("menu_order write failed", zap.Int64("id", f.ID), zap.String("error", f.Error))
	}
	p.logger.Info("reorder persisted",
		zap.String("user", req.UserID),
		zap.String("post_type", target.PostType),
		zap.String("outcome", string(report.Outcome)),
		zap.Int("submitted", report.Submitted),
		zap.Int("written", report.Written),
		zap.Bool("nested", sub.Nested),
		zap.Duration("duration", time.Since(start)),
	)

	switch report.Outcome {
	case models.OutcomePartial:
		return report, fmt.Errorf("%w: %d of %d items", ErrPartialWrite, report.Written, report.Submitted)
	case models.OutcomeNone:
		return report, fmt.Errorf("%w: 0 of %d items", ErrNothingWritten, report.Submitted)
	}
	return report, nil
}

// IsOutOfScope reports whether err is an OutOfScopeError and returns it.
func IsOutOfScope(err error) (*OutOfScopeError, bool) {
	var scopeErr *OutOfScopeError
	if errors.As(err, &scopeErr) {
		return scopeErr, true
	}
	return nil, false
}
