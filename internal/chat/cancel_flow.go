package chat

import (
	"context"
	"fmt"
	"strings"

	"ledgerbot/internal/core"
)

// startCancel opens the /cancelar flow: list the latest entries numbered by
// position and ask which one to undo.
func (r *Router) startCancel(ctx context.Context, sess *Session, profile core.Profile) Reply {
	txs, err := r.profiles.RecentTransactions(ctx, profile.ID, 10)
	if err != nil {
		return r.errorReply(ctx, err)
	}
	if len(txs) == 0 {
		return text("ℹ️ Nenhuma transação encontrada.")
	}

	lines := []string{"📋 Últimas transações (responda apenas com a POSIÇÃO mostrada, ex: 1):", ""}
	ids := make([]int64, 0, len(txs))
	for i, tx := range txs {
		ids = append(ids, tx.ID)
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, describeTransaction(tx)))
	}
	lines = append(lines, "", "Qual POSIÇÃO deseja cancelar? Envie apenas o número da posição.", "Para abortar, envie 'cancelar'.")

	sess.D.CancelIDs = ids
	sess.Step = StepCancelChoice
	return ask(strings.Join(lines, "\n"), []string{"cancelar"})
}

func (r *Router) continueCancel(ctx context.Context, sess *Session, profile core.Profile, input string) Reply {
	lower := strings.ToLower(input)

	switch sess.Step {

	case StepCancelChoice:
		if lower == "cancelar" || lower == "sair" || isNo(lower) {
			sess.reset()
			return text("Ok, operação de cancelamento abortada.")
		}
		n, ok := parsePositiveInt(input)
		if !ok || n > len(sess.D.CancelIDs) {
			return text(fmt.Sprintf("❗ Posição inválida. Envie um número entre 1 e %d.", len(sess.D.CancelIDs)))
		}
		sess.D.CancelIndex = n - 1
		sess.Step = StepCancelConfirm
		return ask(fmt.Sprintf("🔎 Transação selecionada (posição %d).\nConfirmar cancelamento? (sim/não)", n), yesNo...)

	case StepCancelConfirm:
		if isNo(lower) {
			sess.reset()
			return text("Ok, cancelamento abortado.")
		}
		if !isYes(lower) {
			return ask("Responda 'sim' ou 'não'.", yesNo...)
		}
		txID := sess.D.CancelIDs[sess.D.CancelIndex]
		sess.reset()
		orphaned, err := r.balance.Reverse(ctx, profile.ID, txID)
		if err != nil {
			return r.errorReply(ctx, err)
		}
		if orphaned {
			return text("✅ Transação cancelada.\n⚠️ A contraparte da transferência não foi encontrada; confira o saldo da conta destino.")
		}
		return text("✅ Transação cancelada e saldo ajustado.")
	}

	sess.reset()
	return text("Estado inválido. Use /cancelar para iniciar novamente.")
}

func describeTransaction(tx core.Transaction) string {
	kind, emoji, sign := "ENTRADA", "🟢", "+"
	if tx.Value.Cents < 0 {
		kind, emoji, sign = "SAÍDA", "🔻", "-"
	}
	desc := strings.TrimSpace(tx.Description)
	if desc == "" {
		desc = "-"
	}
	return fmt.Sprintf("%s • %s %s • %s • %s%s",
		tx.Date.Format("02/01/2006"), emoji, kind, desc, sign, tx.Value.Abs().Format())
}
