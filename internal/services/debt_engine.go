package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/core"
	"ledgerbot/internal/storage"
)

// DebtEngine owns installment plans and invoice settlement. Installment
// plans are spawned from card purchases; invoice settlement retires one
// month from each plan and fully settles plain card purchases.
type DebtEngine struct {
	store  *storage.Store
	events *amqp.Client
}

func NewDebtEngine(store *storage.Store, events *amqp.Client) *DebtEngine {
	return &DebtEngine{store: store, events: events}
}

// createInstallmentPlan divides the purchase total into equal monthly
// payments, half-up to the cent. The rounding drift against the original
// total (at most half a cent per installment) is accepted, never reconciled.
func createInstallmentPlan(ctx context.Context, q *storage.Queries, card core.Account, total core.Money, installments int) (core.Debt, error) {
	if !card.IsCard() {
		return core.Debt{}, core.ErrNotCardAccount
	}
	if installments <= 1 {
		return core.Debt{}, core.ErrInvalidMonths
	}
	per, err := core.SplitInstallments(total, installments)
	if err != nil {
		return core.Debt{}, err
	}
	seq, err := q.MaxInstallmentSequence(ctx, card.ID)
	if err != nil {
		return core.Debt{}, fmt.Errorf("next sequence: %w", err)
	}
	seq++
	return q.CreateDebt(ctx, storage.CreateDebtParams{
		ProfileID:           card.ProfileID,
		Creditor:            fmt.Sprintf("%s - Parcelado #%d", card.Name, seq),
		MonthlyPaymentCents: per.Cents,
		Months:              installments,
		Kind:                core.DebtInstallment,
		CardAccountID:       card.ID,
		Sequence:            seq,
	})
}

// unpaidInvoiceTotal sums the card's unsettled outflows: an entry linked to a
// live installment plan contributes one monthly payment, any other entry its
// full magnitude.
func unpaidInvoiceTotal(ctx context.Context, q *storage.Queries, cardID int64) (core.Money, error) {
	txs, err := q.ListUnsettledByAccount(ctx, cardID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list unsettled: %w", err)
	}
	var total core.Money
	for _, tx := range txs {
		if !tx.IsOutflow() {
			continue
		}
		if tx.DebtID != 0 {
			debt, err := q.GetDebt(ctx, tx.DebtID)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					continue
				}
				return core.Money{}, fmt.Errorf("load debt: %w", err)
			}
			if debt.Months > 0 {
				total = total.Add(debt.MonthlyPayment)
			}
			continue
		}
		total = total.Add(tx.Value.Abs())
	}
	return total, nil
}

// UnpaidInvoiceTotal computes the open invoice amount on a card.
func (e *DebtEngine) UnpaidInvoiceTotal(ctx context.Context, profileID, cardID int64) (core.Money, error) {
	card, err := e.store.GetAccount(ctx, cardID)
	if err != nil {
		return core.Money{}, err
	}
	if card.ProfileID != profileID {
		return core.Money{}, core.ErrNotFound
	}
	if !card.IsCard() {
		return core.Money{}, core.ErrNotCardAccount
	}
	return unpaidInvoiceTotal(ctx, e.store.Queries, cardID)
}

// InvoiceSettlement reports what one settlement changed.
type InvoiceSettlement struct {
	BankTx       core.Transaction
	CardTx       core.Transaction
	DebtsReduced int
	DebtsClosed  int
	TxsSettled   int
}

// SettleInvoice pays a card invoice from a bank account. It writes a linked
// bank-outflow / card-inflow pair, decrements every installment plan
// reachable from the card's unsettled outflows by exactly one month (deleting
// plans that reach zero and settling their purchase entry), and settles every
// unlinked unsettled outflow in full. The paid amount is taken as given; it
// is not checked against the computed invoice total.
func (e *DebtEngine) SettleInvoice(ctx context.Context, profileID, bankID, cardID int64, paid core.Money, date core.Date) (InvoiceSettlement, error) {
	if paid.Cents <= 0 {
		return InvoiceSettlement{}, core.ErrInvalidAmount
	}
	if bankID == cardID {
		return InvoiceSettlement{}, core.ErrSameAccount
	}

	var result InvoiceSettlement
	err := e.store.InTx(ctx, func(q *storage.Queries) error {
		bank, err := q.GetAccount(ctx, bankID)
		if err != nil {
			return fmt.Errorf("load bank account: %w", err)
		}
		card, err := q.GetAccount(ctx, cardID)
		if err != nil {
			return fmt.Errorf("load card account: %w", err)
		}
		if bank.ProfileID != profileID || card.ProfileID != profileID {
			return core.ErrNotFound
		}
		if !card.IsCard() {
			return core.ErrNotCardAccount
		}

		description := "Pagamento fatura " + card.Name
		bankTx, err := applyTransaction(ctx, q, storage.CreateTransactionParams{
			ProfileID:         profileID,
			AccountID:         bank.ID,
			ValueCents:        -paid.Cents,
			Date:              date,
			Description:       description,
			IsTransfer:        true,
			TransferAccountID: card.ID,
			IsSettled:         true,
		})
		if err != nil {
			return err
		}
		cardTx, err := applyTransaction(ctx, q, storage.CreateTransactionParams{
			ProfileID:         profileID,
			AccountID:         card.ID,
			ValueCents:        paid.Cents,
			Date:              date,
			Description:       description,
			IsTransfer:        true,
			TransferAccountID: bank.ID,
			SettlementID:      bankTx.ID,
			IsSettled:         true,
		})
		if err != nil {
			return err
		}
		if err := q.LinkSettlement(ctx, bankTx.ID, cardTx.ID); err != nil {
			return fmt.Errorf("link settlement pair: %w", err)
		}
		bankTx.SettlementID = cardTx.ID
		result.BankTx = bankTx
		result.CardTx = cardTx

		unsettled, err := q.ListUnsettledByAccount(ctx, card.ID)
		if err != nil {
			return fmt.Errorf("list unsettled: %w", err)
		}
		seen := make(map[int64]bool)
		for _, tx := range unsettled {
			if !tx.IsOutflow() {
				continue
			}
			if tx.DebtID == 0 {
				if err := q.MarkSettled(ctx, tx.ID, cardTx.ID); err != nil {
					return fmt.Errorf("settle entry: %w", err)
				}
				result.TxsSettled++
				continue
			}
			if seen[tx.DebtID] {
				continue
			}
			seen[tx.DebtID] = true

			debt, err := q.GetDebt(ctx, tx.DebtID)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					continue
				}
				return fmt.Errorf("load debt: %w", err)
			}
			months := debt.Months - 1
			result.DebtsReduced++
			if months <= 0 {
				if err := q.ClearDebtLinks(ctx, debt.ID); err != nil {
					return fmt.Errorf("unlink debt: %w", err)
				}
				if err := q.DeleteDebt(ctx, debt.ID); err != nil {
					return fmt.Errorf("close debt: %w", err)
				}
				if err := q.MarkSettled(ctx, tx.ID, cardTx.ID); err != nil {
					return fmt.Errorf("settle purchase entry: %w", err)
				}
				result.DebtsClosed++
				result.TxsSettled++
				continue
			}
			if err := q.SetDebtMonths(ctx, debt.ID, months); err != nil {
				return fmt.Errorf("reduce debt: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return InvoiceSettlement{}, err
	}

	slog.InfoContext(ctx, "Invoice settled",
		"account_id", cardID,
		"amount_cents", paid.Cents,
		"debts_reduced", result.DebtsReduced,
		"debts_closed", result.DebtsClosed,
		"entries_settled", result.TxsSettled)

	if e.events != nil {
		event := amqp.NewLedgerEvent(amqp.EventInvoiceSettled, profileID, result.CardTx.ID, cardID, paid.Cents)
		if err := e.events.PublishLedgerEvent(ctx, event); err != nil {
			slog.ErrorContext(ctx, "Failed to publish invoice event", "error", err)
		}
	}
	return result, nil
}

// AdvisoryKind classifies a plain-debt payment against the expected amount.
type AdvisoryKind string

const (
	AdvisoryExact     AdvisoryKind = "exact"
	AdvisoryDiscount  AdvisoryKind = "discount"
	AdvisorySurcharge AdvisoryKind = "surcharge"
)

// PaymentAdvisory is informational only; it never blocks or adjusts the
// ledger entry.
type PaymentAdvisory struct {
	Expected core.Money
	Paid     core.Money
	Diff     core.Money // expected - paid; positive means paid less
	Percent  string     // |diff| as a percentage of expected, two decimals
	Kind     AdvisoryKind
}

// ComputeAdvisory compares what monthsPaid cycles should cost against what
// was actually paid.
func ComputeAdvisory(monthly core.Money, monthsPaid int, paid core.Money) PaymentAdvisory {
	expected := core.Money{Cents: monthly.Cents * int64(monthsPaid)}
	diff := core.Money{Cents: expected.Cents - paid.Cents}
	adv := PaymentAdvisory{Expected: expected, Paid: paid, Diff: diff, Percent: "0.00", Kind: AdvisoryExact}
	if diff.Cents > 0 {
		adv.Kind = AdvisoryDiscount
	} else if diff.Cents < 0 {
		adv.Kind = AdvisorySurcharge
	}
	if expected.Cents != 0 && diff.Cents != 0 {
		pct := diff.Abs().Decimal().
			Div(expected.Decimal()).
			Mul(decimal.NewFromInt(100)).
			Round(2)
		adv.Percent = pct.StringFixed(2)
	}
	return adv
}

// SettlePlainDebt records a payment toward a plain debt: an outflow on the
// paying account plus monthsPaid cycles retired (floor at zero, row deleted
// on reaching zero). The advisory reports the signed gap between the expected
// and the paid amount.
func (e *DebtEngine) SettlePlainDebt(ctx context.Context, profileID, debtID, accountID int64, monthsPaid int, paid core.Money, date core.Date) (PaymentAdvisory, error) {
	if monthsPaid <= 0 {
		return PaymentAdvisory{}, core.ErrInvalidMonths
	}
	if paid.Cents <= 0 {
		return PaymentAdvisory{}, core.ErrInvalidAmount
	}

	var advisory PaymentAdvisory
	err := e.store.InTx(ctx, func(q *storage.Queries) error {
		debt, err := q.GetDebt(ctx, debtID)
		if err != nil {
			return fmt.Errorf("load debt: %w", err)
		}
		if debt.ProfileID != profileID {
			return core.ErrNotFound
		}
		acc, err := q.GetAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		if acc.ProfileID != profileID {
			return core.ErrNotFound
		}

		if _, err := applyTransaction(ctx, q, storage.CreateTransactionParams{
			ProfileID:   profileID,
			AccountID:   accountID,
			ValueCents:  -paid.Cents,
			Date:        date,
			Description: "Pagamento dívida " + debt.Creditor,
			IsSettled:   true,
		}); err != nil {
			return err
		}

		advisory = ComputeAdvisory(debt.MonthlyPayment, monthsPaid, paid)

		months := debt.Months - monthsPaid
		if months <= 0 {
			return q.DeleteDebt(ctx, debt.ID)
		}
		return q.SetDebtMonths(ctx, debt.ID, months)
	})
	if err != nil {
		return PaymentAdvisory{}, err
	}

	slog.InfoContext(ctx, "Plain debt payment recorded",
		"debt_id", debtID,
		"months_paid", monthsPaid,
		"amount_cents", paid.Cents,
		"advisory", string(advisory.Kind))

	return advisory, nil
}
