// Package goods_receipt provides the GoodsReceipt document service.
package goods_receipt

import (
	"context"
	"fmt"
	"time"

	"tradeflow/internal/core/apperror"
	appctx "tradeflow/internal/core/context"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/tx"
	"tradeflow/internal/domain"
	"tradeflow/pkg/logger"
)

// Service provides business operations for goods receipt documents.
type Service struct {
	repo      Repository
	txManager tx.Manager
	hooks     *domain.HookRegistry[*GoodsReceipt]
	now       func() time.Time
}

// NewService creates a new goods receipt service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*GoodsReceipt](),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*GoodsReceipt] {
	return s.hooks
}

// GetByID retrieves a goods receipt with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*GoodsReceipt, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// Approve moves a receipt to approved in its own transaction, then runs the
// after-approve hooks. Hook failures are logged and never undo the approval.
func (s *Service) Approve(ctx context.Context, docID id.ID) (*GoodsReceipt, error) {
	var doc *GoodsReceipt
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("goods_receipt", docID)
			}
			return fmt.Errorf("lock goods receipt: %w", err)
		}

		if err := doc.Approve(appctx.ActorID(ctx), s.now()); err != nil {
			return err
		}
		if err := s.hooks.RunBeforeApprove(ctx, doc); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, doc); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "goods receipt approved",
		"id", doc.ID,
		"number", doc.Number)

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		logger.Error(ctx, "load goods receipt lines after approval", "id", doc.ID, "error", err)
		return doc, nil
	}
	doc.Lines = lines

	if err := s.hooks.RunAfterApprove(ctx, doc); err != nil {
		logger.Error(ctx, "after-approve hook failed",
			"id", doc.ID,
			"number", doc.Number,
			"error", err)
	}

	return doc, nil
}
