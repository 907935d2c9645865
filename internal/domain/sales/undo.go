package sales

import (
	"context"
	"fmt"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/domain/inventory"
	"stockcore/pkg/logger"
)

// Undo compensates a completed sale: every line's stock is restored, the
// transaction becomes cancelled and the reason is stamped on it.
//
// Restoration is deliberately tolerant of vanished targets. A batch or
// product deleted since the sale is recorded as missing and skipped; the
// remaining lines still restore and the cancellation still lands. Only
// infrastructure failures roll the whole operation back.
func (s *Service) Undo(ctx context.Context, txID id.ID, reason string) (*UndoResult, error) {
	if reason == "" {
		return nil, apperror.NewValidation("undo reason is required").
			WithDetail("field", "reason")
	}

	result := &UndoResult{}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.repo.GetForUpdate(ctx, txID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewTransactionNotCompleted(txID.String())
			}
			return err
		}
		if sale.Status != StatusCompleted {
			return apperror.NewTransactionNotCompleted(txID.String())
		}

		lines, err := s.repo.GetLines(ctx, txID)
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}

		note := "undo sale " + sale.Number
		for _, line := range lines {
			if len(line.Allocations) > 0 {
				outcome, err := s.manager.RestoreFromSale(ctx, line.Allocations, txID, note)
				if err != nil {
					return err
				}
				result.RestoredCount += outcome.Restored
				result.Missing = append(result.Missing, outcome.Missing...)
				continue
			}

			restored, err := s.ledger.RestoreForUndo(ctx, line.ProductID, line.QuantityBase, txID, note)
			if err != nil {
				return err
			}
			if restored {
				result.RestoredCount++
			} else {
				result.Missing = append(result.Missing, inventory.MissingTarget{
					Kind: inventory.MissingProduct,
					ID:   line.ProductID,
				})
			}
		}

		if err := s.repo.UpdateStatus(ctx, txID, StatusCancelled, true, reason, sale.Version); err != nil {
			return err
		}

		return s.audit.LogChange(ctx, "sale_transaction", txID, "undo", map[string]any{
			"number":   sale.Number,
			"reason":   reason,
			"restored": result.RestoredCount,
			"missing":  len(result.Missing),
		})
	})
	if err != nil {
		return nil, err
	}

	result.Success = true
	result.MissingCount = len(result.Missing)
	if result.MissingCount > 0 {
		result.Warning = fmt.Sprintf(
			"%d restore target(s) no longer exist; stock was restored where possible",
			result.MissingCount)
		logger.Warn(ctx, "sale undone with missing targets",
			"transaction_id", txID,
			"restored", result.RestoredCount,
			"missing", result.MissingCount,
		)
	} else {
		logger.Info(ctx, "sale undone",
			"transaction_id", txID,
			"restored", result.RestoredCount,
		)
	}
	return result, nil
}
