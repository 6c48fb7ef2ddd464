// Package chat implements the conversational layer as an explicit
// finite-state machine per chat. Each incoming message advances the chat's
// session by exactly one step and yields a Reply for the transport to render.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"ledgerbot/internal/core"
	"ledgerbot/internal/services"
)

type Router struct {
	profiles  *services.ProfileService
	balance   *services.BalanceEngine
	debts     *services.DebtEngine
	allowance *services.AllowanceService
	summary   *services.SummaryService
	sessions  *sessions
	now       func() time.Time
}

func NewRouter(
	profiles *services.ProfileService,
	balance *services.BalanceEngine,
	debts *services.DebtEngine,
	allowance *services.AllowanceService,
	summary *services.SummaryService,
) *Router {
	return &Router{
		profiles:  profiles,
		balance:   balance,
		debts:     debts,
		allowance: allowance,
		summary:   summary,
		sessions:  newSessions(),
		now:       time.Now,
	}
}

func (r *Router) today() core.Date {
	return core.Today(r.now())
}

// Handle processes one message for one chat. Commands start a flow or answer
// directly; plain text continues whatever flow the session is in.
func (r *Router) Handle(ctx context.Context, chatID int64, userName, input string) Reply {
	input = strings.TrimSpace(input)

	if strings.HasPrefix(input, "/") {
		cmd, arg, _ := strings.Cut(input, " ")
		return r.handleCommand(ctx, chatID, userName, strings.ToLower(cmd), strings.TrimSpace(arg))
	}

	sess := r.sessions.get(chatID)
	if sess.Step == StepNone {
		return text("Não entendi. Use /add para registrar uma transação ou /start para começar.")
	}

	profile, err := r.profiles.Get(ctx, chatID)
	if err != nil {
		sess.reset()
		return r.errorReply(ctx, err)
	}

	switch {
	case strings.HasPrefix(string(sess.Step), "tx_"):
		return r.continueTransaction(ctx, sess, profile, input)
	case strings.HasPrefix(string(sess.Step), "qp_"):
		return r.continueQuickPurchase(ctx, sess, profile, input)
	case strings.HasPrefix(string(sess.Step), "cancel_"):
		return r.continueCancel(ctx, sess, profile, input)
	case strings.HasPrefix(string(sess.Step), "cat_"):
		return r.continueCategory(ctx, sess, profile, input)
	case strings.HasPrefix(string(sess.Step), "my_"):
		return r.continueMyData(ctx, sess, profile, input)
	default:
		sess.reset()
		return text("Estado inválido. Fluxo reiniciado.")
	}
}

func (r *Router) handleCommand(ctx context.Context, chatID int64, userName, cmd, arg string) Reply {
	if cmd == "/start" {
		return r.handleStart(ctx, chatID, userName)
	}
	if cmd == "/exit" {
		r.sessions.drop(chatID)
		return text("✅ Fluxo cancelado e reiniciado.")
	}

	profile, err := r.profiles.Get(ctx, chatID)
	if err != nil {
		return r.errorReply(ctx, err)
	}

	sess := r.sessions.get(chatID)
	sess.reset()

	switch cmd {
	case "/add":
		sess.Step = StepTxKind
		return ask("Você quer registrar uma entrada ou saída?", []string{"entrada", "saída"})
	case "/comprarapida":
		sess.Step = StepQPValue
		return text("Registrar saída rápida — qual o valor?")
	case "/carteira":
		return r.handleWallet(ctx, profile, arg)
	case "/resumo":
		return r.handleSummary(ctx, profile, arg)
	case "/listacategorias":
		return r.startCategory(ctx, sess, profile)
	case "/meusdados":
		return r.startMyData(ctx, sess, profile)
	case "/cancelar":
		return r.startCancel(ctx, sess, profile)
	default:
		return text("Comando desconhecido. Comandos: /add /comprarapida /carteira /meusdados /resumo /listacategorias /cancelar /exit")
	}
}

func (r *Router) handleStart(ctx context.Context, chatID int64, userName string) Reply {
	if userName == "" {
		userName = "usuário"
	}
	profile, err := r.profiles.GetOrCreate(ctx, chatID, userName)
	if err != nil {
		return r.errorReply(ctx, err)
	}
	return text(fmt.Sprintf(
		"Olá %s! 👋\n\n"+
			"Suas contas padrão estão prontas.\n\n"+
			"🔒 Você está autenticado automaticamente pelo seu perfil de chat; "+
			"apenas você acessa os seus dados.\n\n"+
			"Agora você pode registrar suas receitas e despesas! ✅",
		profile.Name))
}

func (r *Router) handleWallet(ctx context.Context, profile core.Profile, arg string) Reply {
	var accountID int64
	if arg != "" {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return text("Use /carteira ou /carteira <id da conta>.")
		}
		accountID = id
	}

	allowance, err := r.allowance.DailyAllowance(ctx, profile.ID, accountID, r.today())
	if err != nil {
		return r.errorReply(ctx, err)
	}

	lines := []string{
		fmt.Sprintf("📅 Dia: %s", r.today().ISO()),
		"",
		fmt.Sprintf("🟢 Disponível hoje: %s", allowance.AvailableToday.Format()),
		fmt.Sprintf("🔴 Já gasto hoje: %s", allowance.SpentToday.Format()),
		fmt.Sprintf("➡️ Disponível amanhã (sobra + cota): %s", allowance.AvailableTomorrow.Format()),
	}
	if allowance.Fallback {
		lines = append(lines, "", "ℹ️ Sem entradas registradas; cota baseada no saldo atual até o fim do mês.")
	}

	if accountID == 0 {
		if acc, err := r.findAccountByName(ctx, profile.ID, core.DefaultSpendingAccount); err == nil {
			accountID = acc.ID
		}
	}
	if accountID != 0 {
		lines = append(lines, "", "📄 Extrato do dia:")
		txs, err := r.profiles.DayStatement(ctx, profile.ID, accountID, r.today())
		if err == nil && len(txs) > 0 {
			for _, tx := range txs {
				kind := "SAÍDA"
				if tx.IsInflow() {
					kind = "ENTRADA"
				}
				desc := tx.Description
				if desc == "" {
					desc = "sem descrição"
				}
				lines = append(lines, fmt.Sprintf(" - [%s] %s | %s", kind, desc, tx.Value.Format()))
			}
		} else {
			lines = append(lines, " (sem transações hoje)")
		}
	}

	return text(strings.Join(lines, "\n"))
}

func (r *Router) handleSummary(ctx context.Context, profile core.Profile, arg string) Reply {
	today := r.today()
	year, month := today.Year(), int(today.Time.Month())
	if arg != "" {
		m, y, ok := parseMonthYear(arg)
		if !ok {
			return text("Use o formato: /resumo mm/aaaa")
		}
		year, month = y, m
	}

	report, err := r.summary.MonthReport(ctx, profile.ID, year, month)
	if err != nil {
		return r.errorReply(ctx, err)
	}
	ov := report.Overview

	lines := []string{
		fmt.Sprintf("📊 Resumo %02d/%d", month, year),
		"",
		fmt.Sprintf("💰 Receita total: %s", ov.Inflow.Format()),
		fmt.Sprintf("💸 Despesa total: %s", ov.Outflow.Abs().Format()),
		fmt.Sprintf("⚖️ Saldo do período: %s", ov.Net.Format()),
		"",
		fmt.Sprintf("🏷️ Fixos: %s", ov.Fixed.Format()),
		fmt.Sprintf("🏷️ Variáveis: %s", ov.Variable.Format()),
	}
	if len(ov.ByCategory) > 0 {
		lines = append(lines, "", "📂 Por categoria:")
		for _, c := range ov.ByCategory {
			lines = append(lines, fmt.Sprintf(" - %s: %s", c.Name, c.Amount.Format()))
		}
	}
	if len(report.NetSeries) > 0 {
		lines = append(lines, "", fmt.Sprintf("📈 Projeção mensal até dezembro: %s", report.ProjectedNet.Format()))
	}
	return text(strings.Join(lines, "\n"))
}

func (r *Router) findAccountByName(ctx context.Context, profileID int64, name string) (core.Account, error) {
	accounts, err := r.profiles.ListAccounts(ctx, profileID)
	if err != nil {
		return core.Account{}, err
	}
	for _, acc := range accounts {
		if strings.EqualFold(acc.Name, name) {
			return acc, nil
		}
	}
	return core.Account{}, core.ErrNotFound
}

func (r *Router) errorReply(ctx context.Context, err error) Reply {
	switch {
	case errors.Is(err, core.ErrProfileRequired):
		return text("Você ainda não tem perfil. Use /start para começar.")
	case errors.Is(err, core.ErrInvalidAmount):
		return text("Valor inválido.")
	case errors.Is(err, core.ErrInvalidMonths):
		return text("Número de meses inválido.")
	case errors.Is(err, core.ErrAlreadySettled):
		return text("⚠️ Essa transação já foi liquidada e não pode ser cancelada.")
	case errors.Is(err, core.ErrNonZeroBalance):
		return text("Não é possível remover um item com saldo diferente de zero. Zere o saldo antes.")
	case errors.Is(err, core.ErrSameAccount):
		return text("Origem e destino não podem ser a mesma conta.")
	case errors.Is(err, core.ErrInsufficient):
		return text("Saldo insuficiente.")
	case errors.Is(err, core.ErrReservedName):
		return text("Esse nome é reservado. Escolha outro.")
	case errors.Is(err, core.ErrEmptyName):
		return text("Nome inválido.")
	case errors.Is(err, core.ErrNotCardAccount):
		return text("Essa conta não é um cartão de crédito.")
	case errors.Is(err, core.ErrNotFound):
		return text("Registro não encontrado.")
	default:
		slog.ErrorContext(ctx, "Chat handler failed", "error", err)
		return text("❌ Algo deu errado. Tente novamente.")
	}
}

func parseMoney(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(s))
	if err != nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	return core.Money{Cents: cents}, nil
}

func parsePositiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// parseMonthYear reads "mm/aaaa".
func parseMonthYear(s string) (month, year int, ok bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	m, err1 := strconv.Atoi(parts[0])
	y, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || m < 1 || m > 12 || y < 1 {
		return 0, 0, false
	}
	return m, y, true
}

func isYes(s string) bool {
	return strings.EqualFold(s, "sim") || strings.EqualFold(s, "s")
}

func isNo(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	return l == "não" || l == "nao" || l == "n"
}
