package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/core"
	"ledgerbot/internal/storage"
)

// BalanceEngine applies and reverses ledger entries, keeping the
// balance_before chain and the cached account balance consistent. Every
// mutation runs in one store transaction.
type BalanceEngine struct {
	store  *storage.Store
	events *amqp.Client
}

func NewBalanceEngine(store *storage.Store, events *amqp.Client) *BalanceEngine {
	return &BalanceEngine{store: store, events: events}
}

type RecordParams struct {
	ProfileID   int64
	AccountID   int64
	CategoryID  int64
	Value       core.Money // signed: positive inflow, negative outflow
	Date        core.Date
	Description string
	// Installments > 1 on a card outflow spawns an installment plan.
	Installments int
}

// applyTransaction inserts one entry with its balance_before snapshot and
// adjusts the account balance. The snapshot chains off the last entry of the
// same account and date; the first entry of a day snapshots the account
// balance as it stands.
func applyTransaction(ctx context.Context, q *storage.Queries, arg storage.CreateTransactionParams) (core.Transaction, error) {
	last, err := q.LastTransactionOnDate(ctx, arg.AccountID, arg.Date)
	switch {
	case err == nil:
		arg.BalanceBeforeCents = last.BalanceBefore.Cents + last.Value.Cents
	case errors.Is(err, core.ErrNotFound):
		acc, err := q.GetAccount(ctx, arg.AccountID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("load account: %w", err)
		}
		arg.BalanceBeforeCents = acc.Balance.Cents
	default:
		return core.Transaction{}, fmt.Errorf("find last entry: %w", err)
	}

	tx, err := q.CreateTransaction(ctx, arg)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if err := q.AddToAccountBalance(ctx, arg.AccountID, arg.ValueCents); err != nil {
		return core.Transaction{}, fmt.Errorf("adjust balance: %w", err)
	}
	return tx, nil
}

// Record writes a transaction and, for a card outflow bought in more than one
// installment, the amortizing debt it spawns.
func (e *BalanceEngine) Record(ctx context.Context, p RecordParams) (core.Transaction, error) {
	if p.Value.Cents == 0 {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	if p.Date.IsZero() {
		return core.Transaction{}, fmt.Errorf("record: %w", core.ErrInvalidAmount)
	}

	var out core.Transaction
	err := e.store.InTx(ctx, func(q *storage.Queries) error {
		acc, err := q.GetAccount(ctx, p.AccountID)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		if acc.ProfileID != p.ProfileID {
			return core.ErrNotFound
		}

		arg := storage.CreateTransactionParams{
			ProfileID:   p.ProfileID,
			AccountID:   p.AccountID,
			CategoryID:  p.CategoryID,
			ValueCents:  p.Value.Cents,
			Date:        p.Date,
			Description: p.Description,
		}

		if acc.IsCard() && p.Value.Cents < 0 && p.Installments > 1 {
			debt, err := createInstallmentPlan(ctx, q, acc, p.Value.Abs(), p.Installments)
			if err != nil {
				return err
			}
			arg.DebtID = debt.ID
		}

		out, err = applyTransaction(ctx, q, arg)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"transaction_id", out.ID,
		"account_id", out.AccountID,
		"amount_cents", out.Value.Cents,
		"date", out.Date.ISO())

	e.publish(ctx, amqp.EventTransactionRecorded, out)
	return out, nil
}

// Reverse undoes a transaction: restores the account balance and deletes the
// row. For transfer legs the counterpart is reversed and deleted too. A
// settled transaction, or one whose counterpart is settled, cannot be
// reversed. The returned flag warns that a transfer leg had no locatable
// counterpart and only the single leg was undone.
func (e *BalanceEngine) Reverse(ctx context.Context, profileID, txID int64) (bool, error) {
	var orphaned bool
	var reversed core.Transaction
	err := e.store.InTx(ctx, func(q *storage.Queries) error {
		tx, err := q.GetTransaction(ctx, txID)
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}
		if tx.ProfileID != profileID {
			return core.ErrNotFound
		}
		if tx.IsSettled {
			return core.ErrAlreadySettled
		}
		reversed = tx

		if tx.IsTransfer {
			return e.reverseTransfer(ctx, q, tx, &orphaned)
		}

		// Cancelling an installment purchase also removes the plan it spawned.
		// Linked rows must be detached before the debt row can go.
		if tx.DebtID != 0 {
			if err := q.ClearDebtLinks(ctx, tx.DebtID); err != nil {
				return fmt.Errorf("unlink debt: %w", err)
			}
			if err := q.DeleteDebt(ctx, tx.DebtID); err != nil {
				return fmt.Errorf("delete linked debt: %w", err)
			}
		}
		if err := q.AddToAccountBalance(ctx, tx.AccountID, -tx.Value.Cents); err != nil {
			return fmt.Errorf("restore balance: %w", err)
		}
		return q.DeleteTransaction(ctx, tx.ID)
	})
	if err != nil {
		return false, err
	}

	slog.InfoContext(ctx, "Transaction reversed",
		"transaction_id", reversed.ID,
		"account_id", reversed.AccountID,
		"amount_cents", reversed.Value.Cents,
		"single_leg", orphaned)

	e.publish(ctx, amqp.EventTransactionReversed, reversed)
	return orphaned, nil
}

func (e *BalanceEngine) reverseTransfer(ctx context.Context, q *storage.Queries, tx core.Transaction, orphaned *bool) error {
	counterpart, err := e.findCounterpart(ctx, q, tx)
	switch {
	case err == nil:
		if counterpart.IsSettled {
			return core.ErrAlreadySettled
		}
		if err := q.AddToAccountBalance(ctx, tx.AccountID, -tx.Value.Cents); err != nil {
			return fmt.Errorf("restore balance: %w", err)
		}
		if err := q.AddToAccountBalance(ctx, counterpart.AccountID, -counterpart.Value.Cents); err != nil {
			return fmt.Errorf("restore counterpart balance: %w", err)
		}
		// The legs cross-reference each other, so drop the link from this
		// side before deleting the counterpart.
		if err := q.ClearSettlementLinks(ctx, counterpart.ID); err != nil {
			return fmt.Errorf("unlink counterpart: %w", err)
		}
		if err := q.DeleteTransaction(ctx, counterpart.ID); err != nil {
			return fmt.Errorf("delete counterpart: %w", err)
		}
		return q.DeleteTransaction(ctx, tx.ID)

	case errors.Is(err, core.ErrNotFound):
		// No counterpart row. Undo the nominal destination if one is
		// referenced, then reverse the single leg.
		if tx.TransferAccountID != 0 {
			if err := q.AddToAccountBalance(ctx, tx.TransferAccountID, tx.Value.Cents); err != nil {
				return fmt.Errorf("restore destination balance: %w", err)
			}
		} else {
			*orphaned = true
			slog.WarnContext(ctx, "Transfer counterpart not found, reversing single leg",
				"transaction_id", tx.ID)
		}
		if err := q.AddToAccountBalance(ctx, tx.AccountID, -tx.Value.Cents); err != nil {
			return fmt.Errorf("restore balance: %w", err)
		}
		return q.DeleteTransaction(ctx, tx.ID)

	default:
		return fmt.Errorf("find counterpart: %w", err)
	}
}

func (e *BalanceEngine) findCounterpart(ctx context.Context, q *storage.Queries, tx core.Transaction) (core.Transaction, error) {
	if tx.SettlementID != 0 {
		cp, err := q.GetTransaction(ctx, tx.SettlementID)
		if err == nil {
			return cp, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return core.Transaction{}, err
		}
	}
	if tx.TransferAccountID == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return q.FindTransferCounterpart(ctx, storage.FindTransferCounterpartParams{
		ProfileID:         tx.ProfileID,
		AccountID:         tx.TransferAccountID,
		TransferAccountID: tx.AccountID,
		ValueCents:        -tx.Value.Cents,
		Date:              tx.Date,
	})
}

func (e *BalanceEngine) publish(ctx context.Context, kind string, tx core.Transaction) {
	if e.events == nil {
		return
	}
	event := amqp.NewLedgerEvent(kind, tx.ProfileID, tx.ID, tx.AccountID, tx.Value.Cents)
	if err := e.events.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind, "transaction_id", tx.ID, "error", err)
		// Ledger write already committed; the event is best effort.
	}
}
