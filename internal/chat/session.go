package chat

import (
	"sync"

	"ledgerbot/internal/core"
)

// Step identifies where a conversation stands. Each flow owns a prefix of
// the step space; StepNone means no flow is active.
type Step string

const (
	StepNone Step = ""

	// add-transaction flow
	StepTxKind            Step = "tx_kind"
	StepTxIsDebt          Step = "tx_is_debt"
	StepTxDebtKind        Step = "tx_debt_kind"
	StepTxPickCard        Step = "tx_pick_card"
	StepTxCardConfirm     Step = "tx_card_confirm"
	StepTxCardTotal       Step = "tx_card_total"
	StepTxPickDebt        Step = "tx_pick_debt"
	StepTxDebtPayChoice   Step = "tx_debt_pay_choice"
	StepTxDebtMonths      Step = "tx_debt_months"
	StepTxDebtTotal       Step = "tx_debt_total"
	StepTxValue           Step = "tx_value"
	StepTxUsedCard        Step = "tx_used_card"
	StepTxChooseCard      Step = "tx_choose_card"
	StepTxNewCardName     Step = "tx_new_card_name"
	StepTxInstallmentsAsk Step = "tx_installments_ask"
	StepTxInstallmentsNum Step = "tx_installments_num"
	StepTxCategory        Step = "tx_category"
	StepTxNewCategory     Step = "tx_new_category"
	StepTxCategoryKind    Step = "tx_category_kind"
	StepTxDescription     Step = "tx_description"
	StepTxAccount         Step = "tx_account"

	// quick purchase
	StepQPValue       Step = "qp_value"
	StepQPCategory    Step = "qp_category"
	StepQPNewCategory Step = "qp_new_category"
	StepQPUsedCard    Step = "qp_used_card"
	StepQPCard        Step = "qp_card"
	StepQPNewCard     Step = "qp_new_card"
	StepQPAccount     Step = "qp_account"
	StepQPNewAccount  Step = "qp_new_account"
	StepQPInstall     Step = "qp_installments"
	StepQPDescription Step = "qp_description"

	// cancel transaction
	StepCancelChoice  Step = "cancel_choice"
	StepCancelConfirm Step = "cancel_confirm"

	// category listing
	StepCatConfirm Step = "cat_confirm"
	StepCatName    Step = "cat_name"
	StepCatKind    Step = "cat_kind"

	// profile data editing
	StepMyMenu           Step = "my_menu"
	StepMyName           Step = "my_name"
	StepMyAccountsMenu   Step = "my_accounts_menu"
	StepMyNewAccountName Step = "my_new_account_name"
	StepMyAccountAction  Step = "my_account_action"
	StepMyAddValue       Step = "my_add_value"
	StepMyRemoveValue    Step = "my_remove_value"
	StepMyRenameAccount  Step = "my_rename_account"
	StepMyTransferFrom   Step = "my_transfer_from"
	StepMyTransferTo     Step = "my_transfer_to"
	StepMyTransferAmount Step = "my_transfer_amount"
	StepMyDebtSelect     Step = "my_debt_select"
	StepMyDebtAction     Step = "my_debt_action"
	StepMyDebtName       Step = "my_debt_name"
	StepMyDebtMonthly    Step = "my_debt_monthly"
	StepMyDebtMonths     Step = "my_debt_months"
)

// draft accumulates the fields a flow collects turn by turn. One struct
// serves all flows; the active Step decides which fields are live.
type draft struct {
	Kind         string // "entrada" | "saida"
	Value        core.Money
	Installments int
	CardID       int64
	AccountID    int64
	CategoryID   int64
	NewCategory  string
	Description  string

	// debt payment branch
	PayingCard   bool
	PayingDebt   bool
	DebtID       int64
	MonthsPaid   int
	InvoiceTotal core.Money

	// choices shown on the last keyboard, keyed by lowercased label
	Options map[string]int64

	// cancel flow
	CancelIDs   []int64
	CancelIndex int

	// profile editing
	Scope          core.AccountKind
	EditingAccount int64
	EditingDebt    int64
	TransferFrom   int64
	DebtName       string
	DebtMonthly    core.Money
}

// Session is the per-chat conversation state.
type Session struct {
	Step Step
	D    draft
}

func (s *Session) reset() {
	s.Step = StepNone
	s.D = draft{}
}

type sessions struct {
	mu sync.Mutex
	m  map[int64]*Session
}

func newSessions() *sessions {
	return &sessions{m: make(map[int64]*Session)}
}

func (s *sessions) get(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[chatID]
	if !ok {
		sess = &Session{}
		s.m[chatID] = sess
	}
	return sess
}

func (s *sessions) drop(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}
