package chat

import (
	"context"
	"fmt"
	"strings"

	"ledgerbot/internal/core"
)

// startCategory opens /listacategorias: show what exists and offer to add.
func (r *Router) startCategory(ctx context.Context, sess *Session, profile core.Profile) Reply {
	categories, err := r.profiles.ListCategories(ctx, profile.ID)
	if err != nil {
		return r.errorReply(ctx, err)
	}

	var lines []string
	if len(categories) == 0 {
		lines = append(lines, "Você ainda não tem categorias cadastradas.")
	} else {
		lines = append(lines, "🏷️ Suas categorias:")
		for _, c := range categories {
			kind := "variável"
			if c.Kind == core.CategoryFixed {
				kind = "fixa"
			}
			lines = append(lines, fmt.Sprintf("- %s (%s)", c.Name, kind))
		}
	}
	lines = append(lines, "", "Deseja adicionar uma nova categoria? (sim/não)")

	sess.Step = StepCatConfirm
	return ask(strings.Join(lines, "\n"), yesNo...)
}

func (r *Router) continueCategory(ctx context.Context, sess *Session, profile core.Profile, input string) Reply {
	lower := strings.ToLower(input)

	switch sess.Step {

	case StepCatConfirm:
		if isYes(lower) {
			sess.Step = StepCatName
			return text("Digite o NOME da nova categoria:")
		}
		if isNo(lower) {
			sess.reset()
			return text("Ok, nada a fazer. 👍")
		}
		return ask("Responda 'sim' ou 'não'.", yesNo...)

	case StepCatName:
		name := strings.TrimSpace(input)
		if name == "" {
			return text("Nome inválido. Digite o nome da nova categoria:")
		}
		categories, err := r.profiles.ListCategories(ctx, profile.ID)
		if err != nil {
			sess.reset()
			return r.errorReply(ctx, err)
		}
		for _, c := range categories {
			if strings.EqualFold(c.Name, name) {
				sess.reset()
				return text(fmt.Sprintf("⚠️ A categoria '%s' já existe.", c.Name))
			}
		}
		sess.D.NewCategory = name
		sess.Step = StepCatKind
		return ask("Ela é fixa ou variável?", []string{"fixa", "variável"})

	case StepCatKind:
		kind, ok := parseCategoryKind(lower)
		if !ok {
			return ask("Responda 'fixa' ou 'variável'.", []string{"fixa", "variável"})
		}
		name := sess.D.NewCategory
		sess.reset()
		cat, err := r.profiles.CreateCategory(ctx, profile.ID, name, kind)
		if err != nil {
			return r.errorReply(ctx, err)
		}
		return text(fmt.Sprintf("✅ Categoria '%s' criada com sucesso!", cat.Name))
	}

	sess.reset()
	return text("Estado inválido. Use /listacategorias para recomeçar.")
}
