package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ledgerbot/internal/core"
	"ledgerbot/internal/services"
)

// continueTransaction advances the /add flow: entrada/saída, the debt-payment
// branch (card invoice or plain debt), value, card and installments, category
// selection or creation, description and finally the account to book against.
func (r *Router) continueTransaction(ctx context.Context, sess *Session, profile core.Profile, input string) Reply {
	lower := strings.ToLower(input)

	switch sess.Step {

	case StepTxKind:
		switch lower {
		case "entrada":
			sess.D.Kind = "entrada"
			sess.Step = StepTxValue
			return text("Qual o valor da entrada?")
		case "saída", "saida":
			sess.D.Kind = "saida"
			sess.Step = StepTxIsDebt
			return ask("Essa saída é pagamento de dívida? (sim/não)", yesNo...)
		default:
			return ask("Por favor, responda apenas com 'entrada' ou 'saída'.", []string{"entrada", "saída"})
		}

	case StepTxIsDebt:
		if isYes(lower) {
			sess.Step = StepTxDebtKind
			return ask("Qual tipo de dívida é?", []string{"cartão", "dívida comum"})
		}
		if isNo(lower) {
			sess.Step = StepTxValue
			return text("Qual o valor da saída?")
		}
		return ask("Responda 'sim' ou 'não'.", yesNo...)

	case StepTxDebtKind:
		switch lower {
		case "cartão", "cartao":
			return r.listOpenInvoices(ctx, sess, profile)
		case "dívida comum", "divida comum":
			return r.listPlainDebts(ctx, sess, profile)
		default:
			return ask("Responda 'cartão' ou 'dívida comum'.", []string{"cartão", "dívida comum"})
		}

	case StepTxPickCard:
		cardID, ok := sess.D.Options[lower]
		if !ok {
			return text("Cartão não encontrado. Digite o número mostrado (ex: '1').")
		}
		sess.D.CardID = cardID
		total, err := r.debts.UnpaidInvoiceTotal(ctx, profile.ID, cardID)
		if err != nil {
			sess.reset()
			return r.errorReply(ctx, err)
		}
		sess.D.InvoiceTotal = total
		sess.Step = StepTxCardConfirm
		return ask(fmt.Sprintf("Fatura aberta: %s. Deseja pagar o valor da fatura inteira? (sim/não)", total.Format()), yesNo...)

	case StepTxCardConfirm:
		if isYes(lower) {
			sess.D.PayingCard = true
			sess.D.Value = sess.D.InvoiceTotal
			sess.Step = StepTxDescription
			return text(fmt.Sprintf("✅ Valor definido: %s. Por favor, descreva a saída (opcional):", sess.D.Value.Format()))
		}
		if isNo(lower) {
			sess.D.PayingCard = true
			sess.Step = StepTxCardTotal
			return text("Qual o VALOR que será pago na fatura? (Ex: 1234,56)")
		}
		return ask("Responda 'sim' ou 'não'.", yesNo...)

	case StepTxCardTotal:
		value, err := parseMoney(input)
		if err != nil {
			return text("Por favor, insira um valor válido maior que zero (ex: 1234,56).")
		}
		sess.D.Value = value
		sess.Step = StepTxDescription
		return text(fmt.Sprintf("✅ Pagamento de fatura de %s. Por favor, descreva a saída (opcional):", value.Format()))

	case StepTxPickDebt:
		debtID, ok := sess.D.Options[lower]
		if !ok {
			return text("Dívida não encontrada. Digite o número mostrado (ex: '1').")
		}
		sess.D.PayingDebt = true
		sess.D.DebtID = debtID
		sess.Step = StepTxDebtPayChoice
		return ask("Você quer pagar apenas a parcela atual ou adiantar parcelas?",
			[]string{"parcela atual", "adiantar parcelas"})

	case StepTxDebtPayChoice:
		switch lower {
		case "parcela atual":
			sess.D.MonthsPaid = 1
			sess.Step = StepTxDebtTotal
			return text("Qual o VALOR TOTAL que será pago? (Ex: 1234,56)")
		case "adiantar parcelas":
			sess.Step = StepTxDebtMonths
			return text("Quantas parcelas deseja adiantar?")
		default:
			return ask("Escolha 'parcela atual' ou 'adiantar parcelas'.",
				[]string{"parcela atual", "adiantar parcelas"})
		}

	case StepTxDebtMonths:
		months, ok := parsePositiveInt(input)
		if !ok {
			return text("Por favor, insira um número inteiro maior que zero.")
		}
		sess.D.MonthsPaid = months
		sess.Step = StepTxDebtTotal
		return text("Qual o VALOR TOTAL que será pago nesse adiantamento? (Ex: 1234,56)")

	case StepTxDebtTotal:
		value, err := parseMoney(input)
		if err != nil {
			return text("Por favor, insira um valor válido maior que zero (ex: 1234,56).")
		}
		sess.D.Value = value
		sess.Step = StepTxDescription
		return text(fmt.Sprintf("✅ Registrado pagamento de %d parcela(s), total %s. Por favor, descreva a saída (opcional):",
			sess.D.MonthsPaid, value.Format()))

	case StepTxValue:
		value, err := parseMoney(input)
		if err != nil {
			return text("Por favor, insira um número válido.")
		}
		sess.D.Value = value
		if sess.D.Kind == "entrada" {
			sess.Step = StepTxDescription
			return text("Por favor, descreva a entrada (opcional):")
		}
		sess.Step = StepTxUsedCard
		return ask("Essa saída foi feita no cartão de crédito? (sim/não)", yesNo...)

	case StepTxUsedCard:
		if isYes(lower) {
			return r.listCardsForPurchase(ctx, sess, profile)
		}
		if isNo(lower) {
			return r.askCategory(ctx, sess, profile)
		}
		return ask("Responda 'sim' ou 'não'.", yesNo...)

	case StepTxChooseCard:
		if lower == "criar novo cartão" || lower == "criar novo cartao" {
			sess.Step = StepTxNewCardName
			return text("Digite o NOME do novo cartão:")
		}
		cardID, ok := sess.D.Options[lower]
		if !ok {
			return text("Cartão não encontrado. Escolha um do menu ou 'Criar novo cartão'.")
		}
		sess.D.CardID = cardID
		sess.Step = StepTxInstallmentsAsk
		return ask("Essa compra será parcelada? (sim/não)", yesNo...)

	case StepTxNewCardName:
		card, err := r.profiles.CreateAccount(ctx, profile.ID, input, core.AccountCreditCard, core.BRL)
		if err != nil {
			return r.errorReply(ctx, err)
		}
		sess.D.CardID = card.ID
		sess.Step = StepTxInstallmentsAsk
		return ask("Essa compra será parcelada? (sim/não)", yesNo...)

	case StepTxInstallmentsAsk:
		if isYes(lower) {
			sess.Step = StepTxInstallmentsNum
			return text("Em quantas parcelas? (digite um número inteiro)")
		}
		if isNo(lower) {
			sess.D.Installments = 1
			return r.askCategory(ctx, sess, profile)
		}
		return ask("Responda 'sim' ou 'não'.", yesNo...)

	case StepTxInstallmentsNum:
		n, ok := parsePositiveInt(input)
		if !ok {
			return text("Por favor, insira um número inteiro maior que zero.")
		}
		sess.D.Installments = n
		return r.askCategory(ctx, sess, profile)

	case StepTxCategory:
		if id, ok := sess.D.Options[lower]; ok {
			sess.D.CategoryID = id
			sess.Step = StepTxDescription
			return text("Categoria selecionada. Por favor, descreva a saída (opcional):")
		}
		sess.D.NewCategory = input
		sess.Step = StepTxCategoryKind
		return ask(fmt.Sprintf("Criar nova categoria '%s'. Ela é fixa ou variável?", input),
			[]string{"fixa", "variável"})

	case StepTxNewCategory:
		if input == "" {
			return text("Nome de categoria inválido. Digite um nome válido:")
		}
		sess.D.NewCategory = input
		sess.Step = StepTxCategoryKind
		return ask(fmt.Sprintf("Criar nova categoria '%s'. Ela é fixa ou variável?", input),
			[]string{"fixa", "variável"})

	case StepTxCategoryKind:
		kind, ok := parseCategoryKind(lower)
		if !ok {
			return ask("Responda 'fixa' ou 'variável'.", []string{"fixa", "variável"})
		}
		cat, err := r.profiles.CreateCategory(ctx, profile.ID, sess.D.NewCategory, kind)
		if err != nil {
			sess.reset()
			return r.errorReply(ctx, err)
		}
		sess.D.CategoryID = cat.ID
		sess.Step = StepTxDescription
		return text(fmt.Sprintf("Categoria '%s' criada. Por favor, descreva a saída (opcional):", cat.Name))

	case StepTxDescription:
		if input != "-" {
			sess.D.Description = input
		}
		// purchase on a card books straight against it
		if !sess.D.PayingCard && !sess.D.PayingDebt && sess.D.CardID != 0 {
			return r.saveTransaction(ctx, sess, profile, sess.D.CardID)
		}
		return r.askAccount(ctx, sess, profile)

	case StepTxAccount:
		accountID, ok := sess.D.Options[lower]
		if !ok {
			return text("Conta não encontrada. Por favor, escolha uma conta válida.")
		}
		return r.saveTransaction(ctx, sess, profile, accountID)
	}

	sess.reset()
	return text("Estado inválido. Fluxo reiniciado.")
}

// listOpenInvoices shows the cards with a positive unpaid invoice total,
// numbered for selection. With none open, the payment degrades to a normal
// expense.
func (r *Router) listOpenInvoices(ctx context.Context, sess *Session, profile core.Profile) Reply {
	accounts, err := r.profiles.ListAccounts(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}

	var lines []string
	var labels []string
	options := make(map[string]int64)
	idx := 1
	for _, acc := range accounts {
		if !acc.IsCard() {
			continue
		}
		total, err := r.debts.UnpaidInvoiceTotal(ctx, profile.ID, acc.ID)
		if err != nil {
			sess.reset()
			return r.errorReply(ctx, err)
		}
		if total.Cents <= 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d — Cartão: %s — %s", idx, acc.Name, total.Format()))
		label := strconv.Itoa(idx)
		labels = append(labels, label)
		options[label] = acc.ID
		idx++
	}

	if len(lines) == 0 {
		sess.Step = StepTxValue
		return text("Nenhuma fatura de cartão em aberto. Vamos tratar como despesa normal.\nQual o valor da saída?")
	}

	sess.D.Options = options
	sess.Step = StepTxPickCard
	return ask("Selecione a fatura que está pagando:\n"+strings.Join(lines, "\n"), column(labels...)...)
}

// listPlainDebts numbers the open plain debts for selection.
func (r *Router) listPlainDebts(ctx context.Context, sess *Session, profile core.Profile) Reply {
	debts, err := r.profiles.ListDebts(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}

	var lines []string
	var labels []string
	options := make(map[string]int64)
	idx := 1
	for _, d := range debts {
		if d.Kind != core.DebtPlain || d.Months <= 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d — %s — %s/mês, %d meses restantes",
			idx, d.Creditor, d.MonthlyPayment.Format(), d.Months))
		label := strconv.Itoa(idx)
		labels = append(labels, label)
		options[label] = d.ID
		idx++
	}

	if len(lines) == 0 {
		sess.Step = StepTxValue
		return text("Nenhuma dívida comum encontrada. Vamos tratar como despesa normal.\nQual o valor da saída?")
	}

	sess.D.Options = options
	sess.Step = StepTxPickDebt
	return ask("Selecione a dívida que está pagando:\n"+strings.Join(lines, "\n"), column(labels...)...)
}

func (r *Router) listCardsForPurchase(ctx context.Context, sess *Session, profile core.Profile) Reply {
	accounts, err := r.profiles.ListAccounts(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	options := make(map[string]int64)
	var labels []string
	for _, acc := range accounts {
		if acc.IsCard() {
			options[strings.ToLower(acc.Name)] = acc.ID
			labels = append(labels, acc.Name)
		}
	}
	if len(labels) == 0 {
		sess.Step = StepTxNewCardName
		return text("Nenhum cartão cadastrado. Digite o NOME do novo cartão para criar:")
	}
	sess.D.Options = options
	sess.Step = StepTxChooseCard
	return ask("Escolha um cartão existente ou crie um novo:",
		append(column(labels...), []string{"Criar novo cartão"})...)
}

func (r *Router) askCategory(ctx context.Context, sess *Session, profile core.Profile) Reply {
	categories, err := r.profiles.ListCategories(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	if len(categories) == 0 {
		sess.Step = StepTxNewCategory
		return text("Nenhuma categoria cadastrada ainda. Digite o nome da nova categoria para a saída:")
	}
	options := make(map[string]int64)
	var labels []string
	for _, c := range categories {
		options[strings.ToLower(c.Name)] = c.ID
		labels = append(labels, c.Name)
	}
	sess.D.Options = options
	sess.Step = StepTxCategory
	return ask("Escolha uma categoria existente ou digite uma nova:", column(labels...)...)
}

func (r *Router) askAccount(ctx context.Context, sess *Session, profile core.Profile) Reply {
	accounts, err := r.profiles.ListAccounts(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	options := make(map[string]int64)
	var labels []string
	var lines []string
	for _, acc := range accounts {
		if acc.IsCard() {
			continue
		}
		options[strings.ToLower(acc.Name)] = acc.ID
		labels = append(labels, acc.Name)
		lines = append(lines, fmt.Sprintf("- %s: %s", acc.Name, acc.Balance.Format()))
	}
	if len(labels) == 0 {
		sess.reset()
		return text("Nenhuma conta cadastrada ainda. Por favor, crie uma conta antes.")
	}
	sess.D.Options = options
	sess.Step = StepTxAccount
	return ask("Em qual conta foi feita a movimentação?\n"+strings.Join(lines, "\n"), column(labels...)...)
}

// saveTransaction closes the flow: invoice settlement, plain debt payment or
// a regular ledger entry, depending on what the dialogue collected.
func (r *Router) saveTransaction(ctx context.Context, sess *Session, profile core.Profile, accountID int64) Reply {
	d := sess.D
	sess.reset()
	today := r.today()

	if d.PayingCard {
		result, err := r.debts.SettleInvoice(ctx, profile.ID, accountID, d.CardID, d.Value, today)
		if err != nil {
			return r.errorReply(ctx, err)
		}
		msg := fmt.Sprintf("✅ Pagamento de fatura registrado: %s\n"+
			"Parcelamentos abatidos: %d (quitados: %d)\n"+
			"Compras à vista liquidadas: %d",
			d.Value.Format(), result.DebtsReduced, result.DebtsClosed, result.TxsSettled)
		return text(msg)
	}

	if d.PayingDebt {
		advisory, err := r.debts.SettlePlainDebt(ctx, profile.ID, d.DebtID, accountID, d.MonthsPaid, d.Value, today)
		if err != nil {
			return r.errorReply(ctx, err)
		}
		return text(fmt.Sprintf("✅ Pagamento de dívida registrado: %d mês(es) abatidos, total %s.\n%s",
			d.MonthsPaid, d.Value.Format(), advisoryLine(advisory)))
	}

	value := d.Value
	if d.Kind == "saida" {
		value = value.Neg()
	}
	tx, err := r.balance.Record(ctx, services.RecordParams{
		ProfileID:    profile.ID,
		AccountID:    accountID,
		CategoryID:   d.CategoryID,
		Value:        value,
		Date:         today,
		Description:  d.Description,
		Installments: d.Installments,
	})
	if err != nil {
		return r.errorReply(ctx, err)
	}

	lines := []string{
		"✅ Transação registrada:",
		fmt.Sprintf("Tipo: %s", d.Kind),
		fmt.Sprintf("Valor: %s", tx.Value.Format()),
		fmt.Sprintf("Data: %s", today.ISO()),
	}
	if d.Installments > 1 {
		per, _ := core.SplitInstallments(d.Value, d.Installments)
		lines = append(lines, fmt.Sprintf("📦 Parcelado em %dx de %s", d.Installments, per.Format()))
	}
	return text(strings.Join(lines, "\n"))
}

func advisoryLine(a services.PaymentAdvisory) string {
	switch a.Kind {
	case services.AdvisoryDiscount:
		return fmt.Sprintf("💸 Desconto: %s (%s%% do esperado)", a.Diff.Format(), a.Percent)
	case services.AdvisorySurcharge:
		return fmt.Sprintf("⚠️ Acréscimo: %s (%s%% acima do esperado)", a.Diff.Abs().Format(), a.Percent)
	default:
		return "✅ Sem desconto nem acréscimo (valor igual ao esperado)."
	}
}

func parseCategoryKind(s string) (core.CategoryKind, bool) {
	switch s {
	case "fixa":
		return core.CategoryFixed, true
	case "variável", "variavel":
		return core.CategoryVariable, true
	}
	return "", false
}
