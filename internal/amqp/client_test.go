package amqp

import (
	"testing"
	"time"
)

func TestNewLedgerEvent(t *testing.T) {
	e := NewLedgerEvent(EventTransactionRecorded, 1, 42, 7, -1500)

	if e.EventID == "" {
		t.Error("NewLedgerEvent() EventID should not be empty")
	}
	if e.Kind != EventTransactionRecorded {
		t.Errorf("NewLedgerEvent() Kind = %v, want %v", e.Kind, EventTransactionRecorded)
	}
	if e.ProfileID != 1 || e.TransactionID != 42 || e.AccountID != 7 || e.ValueCents != -1500 {
		t.Errorf("NewLedgerEvent() payload = %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Error("NewLedgerEvent() Timestamp should not be zero")
	}
	if time.Since(e.Timestamp) > time.Second {
		t.Error("NewLedgerEvent() Timestamp should be recent")
	}

	other := NewLedgerEvent(EventTransactionRecorded, 1, 42, 7, -1500)
	if other.EventID == e.EventID {
		t.Error("event ids must be unique")
	}
}

func TestLedgerEvent_JSON(t *testing.T) {
	timestamp := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	e := &LedgerEvent{
		EventID:       "11111111-2222-3333-4444-555555555555",
		Kind:          EventInvoiceSettled,
		ProfileID:     3,
		TransactionID: 99,
		AccountID:     5,
		ValueCents:    -30000,
		Timestamp:     timestamp,
	}

	jsonBytes, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := LedgerEventFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON() error = %v", err)
	}

	if parsed.EventID != e.EventID || parsed.Kind != e.Kind {
		t.Errorf("parsed = %+v, want %+v", parsed, e)
	}
	if parsed.ValueCents != e.ValueCents || parsed.TransactionID != e.TransactionID {
		t.Errorf("parsed payload = %+v", parsed)
	}
	if !parsed.Timestamp.Equal(e.Timestamp) {
		t.Errorf("parsed Timestamp = %v, want %v", parsed.Timestamp, e.Timestamp)
	}
}

func TestLedgerEvent_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"profile_id": "not_a_number"}`)

	if _, err := LedgerEventFromJSON(invalidJSON); err == nil {
		t.Error("LedgerEventFromJSON() should fail with invalid JSON")
	}
}
