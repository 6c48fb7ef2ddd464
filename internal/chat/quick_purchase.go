package chat

import (
	"context"
	"fmt"
	"strings"

	"ledgerbot/internal/core"
	"ledgerbot/internal/services"
)

// continueQuickPurchase advances the /comprarapida flow, a shortened expense
// dialogue: value, variable category, card or bank account, installments and
// an optional description. Unknown category or account names are created on
// the fly instead of aborting.
func (r *Router) continueQuickPurchase(ctx context.Context, sess *Session, profile core.Profile, input string) Reply {
	lower := strings.ToLower(input)

	switch sess.Step {

	case StepQPValue:
		value, err := parseMoney(input)
		if err != nil {
			return text("Valor inválido. Digite um número maior que zero.")
		}
		sess.D.Value = value
		return r.askQuickCategory(ctx, sess, profile)

	case StepQPCategory:
		if lower == "criar nova categoria" {
			sess.Step = StepQPNewCategory
			return text("Digite o NOME da nova categoria:")
		}
		if id, ok := sess.D.Options[lower]; ok {
			sess.D.CategoryID = id
			sess.Step = StepQPUsedCard
			return ask("A compra foi feita no cartão de crédito? (sim/não)", yesNo...)
		}
		return r.createQuickCategory(ctx, sess, profile, input)

	case StepQPNewCategory:
		if strings.TrimSpace(input) == "" {
			return text("Nome inválido. Digite o nome da nova categoria:")
		}
		return r.createQuickCategory(ctx, sess, profile, input)

	case StepQPUsedCard:
		if isYes(lower) {
			return r.askQuickCard(ctx, sess, profile)
		}
		if isNo(lower) {
			return r.askQuickAccount(ctx, sess, profile)
		}
		return ask("Responda apenas com 'sim' ou 'não'.", yesNo...)

	case StepQPCard:
		if lower == "criar novo cartão" || lower == "criar novo cartao" {
			sess.Step = StepQPNewCard
			return text("Digite o NOME do novo cartão:")
		}
		if id, ok := sess.D.Options[lower]; ok {
			sess.D.CardID = id
			sess.Step = StepQPInstall
			return text("Foi parcelado? Digite o número de parcelas:")
		}
		return r.createQuickCard(ctx, sess, profile, input)

	case StepQPNewCard:
		if strings.TrimSpace(input) == "" {
			return text("Nome inválido. Digite o nome do cartão:")
		}
		return r.createQuickCard(ctx, sess, profile, input)

	case StepQPAccount:
		if lower == "criar nova conta" {
			sess.Step = StepQPNewAccount
			return text("Digite o NOME da nova conta:")
		}
		if id, ok := sess.D.Options[lower]; ok {
			sess.D.AccountID = id
			sess.Step = StepQPDescription
			return text("Adicione uma descrição opcional para a compra:")
		}
		return r.createQuickAccount(ctx, sess, profile, input)

	case StepQPNewAccount:
		if strings.TrimSpace(input) == "" {
			return text("Nome inválido. Digite o nome da conta:")
		}
		return r.createQuickAccount(ctx, sess, profile, input)

	case StepQPInstall:
		n, ok := parsePositiveInt(input)
		if !ok {
			return text("Número inválido. Digite um inteiro (ex: 3).")
		}
		sess.D.Installments = n
		sess.Step = StepQPDescription
		return text("Adicione uma descrição opcional para a compra:")

	case StepQPDescription:
		if input != "-" {
			sess.D.Description = input
		}
		return r.saveQuickPurchase(ctx, sess, profile)
	}

	sess.reset()
	return text("Não entendi. Para iniciar uma saída rápida, digite /comprarapida.")
}

func (r *Router) askQuickCategory(ctx context.Context, sess *Session, profile core.Profile) Reply {
	categories, err := r.profiles.ListCategories(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	options := make(map[string]int64)
	var labels []string
	for _, c := range categories {
		if c.Kind != core.CategoryVariable {
			continue
		}
		options[strings.ToLower(c.Name)] = c.ID
		labels = append(labels, c.Name)
		if len(labels) == 8 {
			break
		}
	}
	if len(labels) == 0 {
		sess.Step = StepQPNewCategory
		return text("Qual a categoria da saída? Digite o NOME da nova categoria:")
	}
	sess.D.Options = options
	sess.Step = StepQPCategory
	return ask("Escolha uma categoria existente ou digite uma nova:",
		append(column(labels...), []string{"Criar nova categoria"})...)
}

// createQuickCategory makes a variable category on the fly, short-circuiting
// to any existing one with the same name.
func (r *Router) createQuickCategory(ctx context.Context, sess *Session, profile core.Profile, name string) Reply {
	categories, err := r.profiles.ListCategories(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	var cat core.Category
	found := false
	for _, c := range categories {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			cat, found = c, true
			break
		}
	}
	if !found {
		cat, err = r.profiles.CreateCategory(ctx, profile.ID, name, core.CategoryVariable)
		if err != nil {
			sess.reset()
			return r.errorReply(ctx, err)
		}
	}
	sess.D.CategoryID = cat.ID
	sess.Step = StepQPUsedCard
	return ask(fmt.Sprintf("Categoria '%s' selecionada.\nA compra foi feita no cartão de crédito? (sim/não)", cat.Name), yesNo...)
}

func (r *Router) askQuickCard(ctx context.Context, sess *Session, profile core.Profile) Reply {
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
		sess.Step = StepQPNewCard
		return text("Nenhum cartão cadastrado. Digite o NOME do cartão (será criado):")
	}
	sess.D.Options = options
	sess.Step = StepQPCard
	return ask("Escolha o cartão ou digite um novo:",
		append(column(labels...), []string{"Criar novo cartão"})...)
}

func (r *Router) createQuickCard(ctx context.Context, sess *Session, profile core.Profile, name string) Reply {
	card, err := r.profiles.CreateAccount(ctx, profile.ID, name, core.AccountCreditCard, core.BRL)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	sess.D.CardID = card.ID
	sess.Step = StepQPInstall
	return text("Foi parcelado? Digite o número de parcelas:")
}

func (r *Router) askQuickAccount(ctx context.Context, sess *Session, profile core.Profile) Reply {
	accounts, err := r.profiles.ListAccounts(ctx, profile.ID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	options := make(map[string]int64)
	var labels []string
	for _, acc := range accounts {
		if acc.IsCard() {
			continue
		}
		options[strings.ToLower(acc.Name)] = acc.ID
		labels = append(labels, acc.Name)
	}
	if len(labels) == 0 {
		sess.Step = StepQPNewAccount
		return text("Nenhuma conta bancária cadastrada. Digite o NOME da conta (será criada):")
	}
	sess.D.Options = options
	sess.Step = StepQPAccount
	return ask("Escolha a conta ou digite um novo nome:",
		append(column(labels...), []string{"Criar nova conta"})...)
}

func (r *Router) createQuickAccount(ctx context.Context, sess *Session, profile core.Profile, name string) Reply {
	acc, err := r.profiles.CreateAccount(ctx, profile.ID, name, core.AccountBank, core.BRL)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}
	sess.D.AccountID = acc.ID
	sess.Step = StepQPDescription
	return text("Adicione uma descrição opcional para a compra:")
}

func (r *Router) saveQuickPurchase(ctx context.Context, sess *Session, profile core.Profile) Reply {
	d := sess.D
	sess.reset()

	accountID := d.AccountID
	if d.CardID != 0 {
		accountID = d.CardID
	}
	installments := d.Installments
	if installments < 1 {
		installments = 1
	}

	_, err := r.balance.Record(ctx, services.RecordParams{
		ProfileID:    profile.ID,
		AccountID:    accountID,
		CategoryID:   d.CategoryID,
		Value:        d.Value.Neg(),
		Date:         r.today(),
		Description:  d.Description,
		Installments: installments,
	})
	if err != nil {
		return r.errorReply(ctx, err)
	}
	return text("✅ Saída registrada com sucesso!")
}
