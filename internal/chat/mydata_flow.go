package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledgerbot/internal/core"
	"ledgerbot/internal/services"
)

// startMyData opens /meusdados with the full account overview and the edit
// menu.
func (r *Router) startMyData(ctx context.Context, sess *Session, profile core.Profile) Reply {
	snap, err := r.profiles.Snapshot(ctx, profile.ID, r.today())
	if err != nil {
		return r.errorReply(ctx, err)
	}

	var banks, cards []string
	for _, acc := range snap.Accounts {
		if acc.IsCard() {
			cards = append(cards, fmt.Sprintf("- %s:\n  Saldo %s\n  Fatura aberta: %s",
				acc.Name, acc.Balance.Format(), snap.CardUnpaid[acc.ID].Format()))
		} else {
			banks = append(banks, fmt.Sprintf("- %s: %s", acc.Name, acc.Balance.Format()))
		}
	}
	banksText := "Nenhuma conta cadastrada."
	if len(banks) > 0 {
		banksText = strings.Join(banks, "\n")
	}
	cardsText := "Nenhum cartão cadastrado."
	if len(cards) > 0 {
		cardsText = strings.Join(cards, "\n\n")
	}

	var debts []string
	for _, d := range snap.Debts {
		total := core.Money{Cents: d.MonthlyPayment.Cents * int64(d.Months)}
		debts = append(debts, fmt.Sprintf("• %s\n  Valor mensal: %s\n  Meses: %d\n  Total: %s",
			d.Creditor, d.MonthlyPayment.Format(), d.Months, total.Format()))
	}
	debtsText := "Nenhuma dívida cadastrada."
	if len(debts) > 0 {
		debtsText = strings.Join(debts, "\n")
	}

	summary := fmt.Sprintf(
		"💼 Meus Dados\n\n"+
			"Nome: %s\n"+
			"Reserva de emergência: %s\n\n"+
			"🏦 Contas:\n%s\n\n"+
			"💳 Cartões:\n%s\n\n"+
			"📈 Média (últimos 6 meses com registro)\n"+
			"Receita: %s\nDespesa: %s\n\n"+
			"💳 Dívidas:\n%s\n\n"+
			"O que deseja editar?",
		snap.Profile.Name, snap.Profile.EmergencyFund.Format(),
		banksText, cardsText,
		snap.MeanInflow.Format(), snap.MeanOutflow.Format(),
		debtsText,
	)

	sess.Step = StepMyMenu
	return ask(summary, []string{"Nome"}, []string{"Contas", "Cartões"}, []string{"Transferência"}, []string{"Dívidas", "Nada"})
}

func (r *Router) continueMyData(ctx context.Context, sess *Session, profile core.Profile, input string) Reply {
	lower := strings.ToLower(input)

	switch sess.Step {

	case StepMyMenu:
		switch lower {
		case "nome":
			sess.Step = StepMyName
			return text("Digite o novo nome:")
		case "contas":
			sess.D.Scope = core.AccountBank
			return r.myAccountsMenu(ctx, sess, profile)
		case "cartões", "cartoes":
			sess.D.Scope = core.AccountCreditCard
			return r.myAccountsMenu(ctx, sess, profile)
		case "transferência", "transferencia":
			return r.myTransferFrom(ctx, sess, profile)
		case "dívidas", "dividas":
			return r.myDebtsMenu(ctx, sess, profile)
		default:
			sess.reset()
			return text("Ok, nada será alterado.")
		}

	case StepMyName:
		if err := r.profiles.Rename(ctx, profile.ID, input); err != nil {
			return r.errorReply(ctx, err)
		}
		return r.startMyData(ctx, sess, profile)

	case StepMyAccountsMenu:
		switch lower {
		case "adicionar conta", "adicionar cartão", "adicionar cartao":
			sess.Step = StepMyNewAccountName
			if sess.D.Scope == core.AccountCreditCard {
				return text("Digite o nome do novo cartão:")
			}
			return text("Digite o nome da nova conta:")
		case "voltar":
			return r.startMyData(ctx, sess, profile)
		}
		accID, ok := sess.D.Options[lower]
		if !ok {
			return text("Item não encontrado. Escolha do menu.")
		}
		sess.D.EditingAccount = accID
		sess.Step = StepMyAccountAction
		if sess.D.Scope == core.AccountCreditCard {
			return ask(fmt.Sprintf("O que deseja fazer com '%s'?", input),
				[]string{"Renomear"}, []string{"Remover"}, []string{"Voltar"})
		}
		return ask(fmt.Sprintf("O que deseja fazer com '%s'?", input),
			[]string{"Adicionar Valor"}, []string{"Remover Valor"}, []string{"Renomear"}, []string{"Remover"}, []string{"Voltar"})

	case StepMyNewAccountName:
		kind := sess.D.Scope
		if _, err := r.profiles.CreateAccount(ctx, profile.ID, input, kind, core.BRL); err != nil {
			if errors.Is(err, core.ErrReservedName) {
				return text("Nome reservado. Escolha outro.")
			}
			return r.errorReply(ctx, err)
		}
		return r.startMyData(ctx, sess, profile)

	case StepMyAccountAction:
		switch lower {
		case "adicionar valor":
			sess.Step = StepMyAddValue
			return text("Digite o valor a adicionar:")
		case "remover valor":
			sess.Step = StepMyRemoveValue
			return text("Digite o valor a remover:")
		case "renomear":
			sess.Step = StepMyRenameAccount
			return text("Digite o novo nome:")
		case "remover":
			accID := sess.D.EditingAccount
			if err := r.profiles.RemoveAccount(ctx, profile.ID, accID); err != nil {
				switch {
				case errors.Is(err, core.ErrReservedName):
					return text("Essa conta é padrão e não pode ser removida.")
				case errors.Is(err, core.ErrNonZeroBalance):
					return text("Não é possível remover um item com saldo diferente de zero. Zere o saldo antes de remover.")
				}
				return r.errorReply(ctx, err)
			}
			return r.startMyData(ctx, sess, profile)
		case "voltar":
			return r.myAccountsMenu(ctx, sess, profile)
		}
		return text("Escolha inválida. Use o menu.")

	case StepMyAddValue:
		amount, err := parseMoney(input)
		if err != nil {
			return text("Valor inválido.")
		}
		_, err = r.balance.Record(ctx, services.RecordParams{
			ProfileID:   profile.ID,
			AccountID:   sess.D.EditingAccount,
			Value:       amount,
			Date:        r.today(),
			Description: "Entrada adicionada",
		})
		if err != nil {
			return r.errorReply(ctx, err)
		}
		return r.startMyData(ctx, sess, profile)

	case StepMyRemoveValue:
		amount, err := parseMoney(input)
		if err != nil {
			return text("Valor inválido.")
		}
		balance, err := r.accountBalance(ctx, profile.ID, sess.D.EditingAccount)
		if err != nil {
			return r.errorReply(ctx, err)
		}
		if balance.Cents < amount.Cents {
			return text("Saldo insuficiente no item.")
		}
		_, err = r.balance.Record(ctx, services.RecordParams{
			ProfileID:   profile.ID,
			AccountID:   sess.D.EditingAccount,
			Value:       amount.Neg(),
			Date:        r.today(),
			Description: "Retirada manual",
		})
		if err != nil {
			return r.errorReply(ctx, err)
		}
		return r.startMyData(ctx, sess, profile)

	case StepMyRenameAccount:
		if err := r.profiles.RenameAccount(ctx, profile.ID, sess.D.EditingAccount, input); err != nil {
			if errors.Is(err, core.ErrReservedName) {
				return text("Esse nome é reservado. Escolha outro.")
			}
			return r.errorReply(ctx, err)
		}
		return r.startMyData(ctx, sess, profile)

	case StepMyTransferFrom:
		if lower == "voltar" {
			return r.startMyData(ctx, sess, profile)
		}
		fromID, ok := sess.D.Options[lower]
		if !ok {
			return text("Conta de origem não encontrada. Escolha na lista.")
		}
		sess.D.TransferFrom = fromID
		return r.myTransferTo(ctx, sess, profile)

	case StepMyTransferTo:
		if lower == "voltar" {
			return r.startMyData(ctx, sess, profile)
		}
		toID, ok := sess.D.Options[lower]
		if !ok {
			return text("Conta de destino não encontrada. Escolha na lista.")
		}
		if toID == sess.D.TransferFrom {
			return text("Origem e destino não podem ser a mesma conta. Escolha outro destino.")
		}
		sess.D.AccountID = toID
		sess.Step = StepMyTransferAmount
		return text("Digite o valor da transferência:")

	case StepMyTransferAmount:
		amount, err := parseMoney(input)
		if err != nil {
			return text("Valor inválido.")
		}
		balance, err := r.accountBalance(ctx, profile.ID, sess.D.TransferFrom)
		if err != nil {
			return r.errorReply(ctx, err)
		}
		if balance.Cents < amount.Cents {
			return text("Saldo insuficiente na conta de origem.")
		}
		if err := r.profiles.Transfer(ctx, profile.ID, sess.D.TransferFrom, sess.D.AccountID, amount, r.today()); err != nil {
			return r.errorReply(ctx, err)
		}
		return r.startMyData(ctx, sess, profile)

	case StepMyDebtSelect:
		switch lower {
		case "adicionar dívida", "adicionar divida":
			sess.Step = StepMyDebtName
			return text("Digite o nome do credor da nova dívida:")
		case "voltar":
			return r.startMyData(ctx, sess, profile)
		}
		debtID, ok := sess.D.Options[lower]
		if !ok {
			return text("Dívida não encontrada. Escolha do menu.")
		}
		sess.D.EditingDebt = debtID
		sess.Step = StepMyDebtAction
		return ask(fmt.Sprintf("O que deseja fazer com a dívida '%s'?", input),
			[]string{"Editar Valor Mensal", "Editar Meses"}, []string{"Remover Dívida"}, []string{"Voltar"})

	case StepMyDebtAction:
		switch lower {
		case "editar valor mensal":
			sess.Step = StepMyDebtMonthly
			return text("Digite o novo valor mensal:")
		case "editar meses":
			sess.Step = StepMyDebtMonths
			return text("Digite o novo número de meses:")
		case "remover dívida", "remover divida":
			if err := r.profiles.RemoveDebt(ctx, profile.ID, sess.D.EditingDebt); err != nil {
				return r.errorReply(ctx, err)
			}
			return r.startMyData(ctx, sess, profile)
		case "voltar":
			return r.startMyData(ctx, sess, profile)
		}
		return text("Escolha inválida. Use o menu.")

	case StepMyDebtName:
		name := strings.TrimSpace(input)
		if name == "" {
			return text("Nome inválido. Digite o nome do credor:")
		}
		sess.D.DebtName = name
		sess.Step = StepMyDebtMonthly
		return text(fmt.Sprintf("Digite o valor mensal da dívida de %s:", name))

	case StepMyDebtMonthly:
		monthly, err := parseMoney(input)
		if err != nil {
			return text("Valor inválido. Digite novamente.")
		}
		if sess.D.DebtName != "" {
			sess.D.DebtMonthly = monthly
			sess.Step = StepMyDebtMonths
			return text("Quantos meses será usado esse valor para calcular o total?")
		}
		if err := r.profiles.UpdateDebtMonthly(ctx, profile.ID, sess.D.EditingDebt, monthly); err != nil {
			return r.errorReply(ctx, err)
		}
		sess.Step = StepMyDebtMonths
		return text("Quantos meses será usado esse valor para calcular o total?")

	case StepMyDebtMonths:
		months, ok := parsePositiveInt(input)
		if !ok {
			return text("Número inválido. Digite novamente.")
		}
		if sess.D.DebtName != "" {
			if _, err := r.profiles.AddDebt(ctx, profile.ID, sess.D.DebtName, sess.D.DebtMonthly, months); err != nil {
				return r.errorReply(ctx, err)
			}
			return r.startMyData(ctx, sess, profile)
		}
		if err := r.profiles.UpdateDebtMonths(ctx, profile.ID, sess.D.EditingDebt, months); err != nil {
			return r.errorReply(ctx, err)
		}
		return r.startMyData(ctx, sess, profile)
	}

	sess.reset()
	return text("Estado inválido. Use /meusdados para recomeçar.")
}

func (r *Router) myAccountsMenu(ctx context.Context, sess *Session, profile core.Profile) Reply {
	accounts, err := r.profiles.ListAccounts(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	options := make(map[string]int64)
	var labels []string
	for _, acc := range accounts {
		if acc.Kind != sess.D.Scope {
			continue
		}
		options[strings.ToLower(acc.Name)] = acc.ID
		labels = append(labels, acc.Name)
	}
	sess.D.Options = options
	sess.Step = StepMyAccountsMenu

	addLabel, prompt := "Adicionar Conta", "Escolha uma conta ou 'Adicionar Conta':"
	if sess.D.Scope == core.AccountCreditCard {
		addLabel, prompt = "Adicionar Cartão", "Escolha um cartão ou 'Adicionar Cartão':"
	}
	return ask(prompt, append(column(labels...), []string{addLabel}, []string{"Voltar"})...)
}

func (r *Router) myTransferFrom(ctx context.Context, sess *Session, profile core.Profile) Reply {
	accounts, err := r.profiles.ListAccounts(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	options := make(map[string]int64)
	var labels []string
	for _, acc := range accounts {
		options[strings.ToLower(acc.Name)] = acc.ID
		labels = append(labels, acc.Name)
	}
	sess.D.Options = options
	sess.Step = StepMyTransferFrom
	return ask("Escolha a conta de ORIGEM:", append(column(labels...), []string{"Voltar"})...)
}

func (r *Router) myTransferTo(ctx context.Context, sess *Session, profile core.Profile) Reply {
	accounts, err := r.profiles.ListAccounts(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	options := make(map[string]int64)
	var labels []string
	for _, acc := range accounts {
		if acc.ID == sess.D.TransferFrom {
			continue
		}
		options[strings.ToLower(acc.Name)] = acc.ID
		labels = append(labels, acc.Name)
	}
	sess.D.Options = options
	sess.Step = StepMyTransferTo
	return ask("Escolha a conta de DESTINO:", append(column(labels...), []string{"Voltar"})...)
}

func (r *Router) myDebtsMenu(ctx context.Context, sess *Session, profile core.Profile) Reply {
	debts, err := r.profiles.ListDebts(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	options := make(map[string]int64)
	var labels []string
	for _, d := range debts {
		options[strings.ToLower(d.Creditor)] = d.ID
		labels = append(labels, d.Creditor)
	}
	sess.D.Options = options
	sess.D.DebtName = ""
	sess.Step = StepMyDebtSelect
	return ask("Escolha uma dívida para editar, ou 'Adicionar Dívida' para criar:",
		append(column(labels...), []string{"Adicionar Dívida"}, []string{"Voltar"})...)
}

// accountBalance fetches the current balance of one owned account.
func (r *Router) accountBalance(ctx context.Context, profileID, accountID int64) (core.Money, error) {
	accounts, err := r.profiles.ListAccounts(ctx, profileID)
	if err != nil {
		return core.Money{}, err
	}
	for _, acc := range accounts {
		if acc.ID == accountID {
			return acc.Balance, nil
		}
	}
	return core.Money{}, core.ErrNotFound
}
