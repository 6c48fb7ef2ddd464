package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds carried on the ledger events queue. External consumers (the
// chart renderer, the report worker) switch on this field.
const (
	EventTransactionRecorded = "transaction.recorded"
	EventTransactionReversed = "transaction.reversed"
	EventInvoiceSettled      = "invoice.settled"
)

// LedgerEvent is a lightweight notification. Consumers fetch full rows from
// the database by id; the payload only carries enough to route and dedupe.
type LedgerEvent struct {
	EventID       string    `json:"event_id"`
	Kind          string    `json:"kind"`
	ProfileID     int64     `json:"profile_id"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	AccountID     int64     `json:"account_id,omitempty"`
	ValueCents    int64     `json:"value_cents,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind string, profileID, transactionID, accountID, valueCents int64) *LedgerEvent {
	return &LedgerEvent{
		EventID:       uuid.NewString(),
		Kind:          kind,
		ProfileID:     profileID,
		TransactionID: transactionID,
		AccountID:     accountID,
		ValueCents:    valueCents,
		Timestamp:     time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// MonthlyReport carries the aggregated series the external chart renderer
// turns into images. Amounts are cents.
type MonthlyReport struct {
	EventID        string           `json:"event_id"`
	ProfileID      int64            `json:"profile_id"`
	Year           int              `json:"year"`
	Month          int              `json:"month"`
	CategoryTotals map[string]int64 `json:"category_totals"`
	NetSeries      []int64          `json:"net_series"`
	Timestamp      time.Time        `json:"timestamp"`
}

func NewMonthlyReport(profileID int64, year, month int, categoryTotals map[string]int64, netSeries []int64) *MonthlyReport {
	return &MonthlyReport{
		EventID:        uuid.NewString(),
		ProfileID:      profileID,
		Year:           year,
		Month:          month,
		CategoryTotals: categoryTotals,
		NetSeries:      netSeries,
		Timestamp:      time.Now(),
	}
}

func (r *MonthlyReport) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func MonthlyReportFromJSON(data []byte) (*MonthlyReport, error) {
	var r MonthlyReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
