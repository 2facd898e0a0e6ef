package services

import (
	"fmt"
	"strings"

	"zubi/internal/models"
)

const basePrompt = `Você é a Zubi, uma nutricionista virtual brasileira que conversa pelo WhatsApp.
- Seja acolhedora, objetiva e use linguagem simples.
- Evite explicações longas desnecessárias.
- Use no máximo um emoji por mensagem.
- Nunca invente dados do paciente.`

func formatHistory(history []models.Message) string {
	if len(history) == 0 {
		return "(sem histórico)"
	}
	var b strings.Builder
	for _, m := range history {
		who := "Paciente"
		if m.Role == models.RoleSystem {
			who = "Zubi"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, m.Text)
	}
	return strings.TrimSpace(b.String())
}

func extractionPrompt(text, lastQuestion string, history []models.Message) string {
	return fmt.Sprintf(`Analise a mensagem do paciente e extraia os dados de perfil que ela contém.

Última pergunta feita pela Zubi: "%s"
Conversa recente:
%s

Mensagem a analisar: "%s"

Responda com um objeto JSON com exatamente estas chaves:
{
  "name": string ou null,
  "age": número ou null,
  "gender": "masculino", "feminino" ou null,
  "weight_kg": número ou null,
  "height_cm": número ou null (se vier em metros, informe em metros mesmo),
  "activity_level": "sedentario", "leve", "moderado", "ativo", "muito ativo" ou null,
  "goal": "perda de peso", "ganho de massa muscular", "manutenção" ou null,
  "has_question": true se o paciente fez uma pergunta ou pediu esclarecimento,
  "question_context": resumo da pergunta do paciente ou null,
  "remaining_text": trecho da mensagem ainda não analisado que pode conter mais dados, ou ""
}
Use null para tudo que não estiver explícito na mensagem.`, lastQuestion, formatHistory(history), text)
}

func questionPrompt(field models.Field, profile models.Profile) string {
	name := profile.Name
	if name == "" {
		name = "(ainda não informado)"
	}
	return fmt.Sprintf(`Gere UMA pergunta curta e acolhedora para descobrir o(a) %s do paciente.
Nome do paciente: %s
Regras:
1. Apenas a pergunta, terminando com "?"
2. No máximo 20 palavras
3. Não peça nenhuma outra informação`, field.Label(), name)
}

func answerPrompt(topic, lastQuestion string, profile models.Profile) string {
	return fmt.Sprintf(`Responda à dúvida do paciente como uma nutricionista empática e profissional.

Contexto da pergunta: %s
Dados do paciente: %s
Última pergunta feita por você: "%s"

Regras:
1. Explique o propósito da pergunta de forma clara
2. Relacione a explicação com o objetivo do paciente quando souber
3. Resposta curta: no máximo 3 frases
4. Não faça novas perguntas`, topic, profileLine(profile), lastQuestion)
}

func summaryPrompt(summary string) string {
	return fmt.Sprintf(`Reescreva o resumo abaixo para enviar ao paciente pelo WhatsApp.
Regras:
1. Mantenha TODOS os números exatamente como estão
2. Comece com "📋 Sua análise nutricional"
3. Use listas curtas, sem markdown de negrito
4. Termine explicando em uma frase o que é a meta calórica

%s`, summary)
}

func mealEstimatePrompt(description string) string {
	return fmt.Sprintf(`Estime as informações nutricionais da refeição descrita pelo paciente:
"%s"

Regras:
1. Os valores devem corresponder à QUANTIDADE TOTAL descrita, não a uma porção unitária.
   Exemplo: "10 pizzas" deve resultar em aproximadamente 15.000 a 20.000 kcal.
2. Sem quantidade explícita, considere uma porção caseira típica no Brasil.
3. Se a mensagem não descrever comida ou bebida, retorne todos os valores como 0.

Responda com um objeto JSON:
{
  "description": descrição curta da refeição,
  "kcal": número,
  "protein_g": número,
  "carbs_g": número,
  "fat_g": número,
  "items": [{"name": string, "quantity": número, "unit": string, "kcal": número, "protein_g": número, "carbs_g": número, "fat_g": número}]
}`, description)
}

func classifyPrompt(text string) string {
	return fmt.Sprintf(`Classifique a intenção da mensagem do paciente:
"%s"

Categorias:
- "meal": menciona qualquer comida, bebida ou refeição (tem prioridade sobre as demais)
- "info": pede seus próprios dados, resumo, metas ou progresso
- "nutrition_question": dúvida sobre nutrição ou alimentação
- "other": qualquer outra coisa

Responda com um objeto JSON: {"intent": "<categoria>"}`, text)
}

func conversationPrompt(text string, profile models.Profile, history []models.Message) string {
	return fmt.Sprintf(`Dados do paciente: %s
Conversa recente:
%s

Mensagem do paciente: "%s"

Responda em no máximo 3 frases. Se for uma dúvida de nutrição, considere o objetivo do paciente.`,
		profileLine(profile), formatHistory(history), text)
}

func profileLine(p models.Profile) string {
	var parts []string
	if p.Has(models.FieldName) {
		parts = append(parts, "nome "+p.Name)
	}
	if p.Has(models.FieldAge) {
		parts = append(parts, fmt.Sprintf("%d anos", p.Age))
	}
	if p.Has(models.FieldGender) {
		parts = append(parts, "sexo "+p.Gender.Label())
	}
	if p.Has(models.FieldWeight) {
		parts = append(parts, models.FormatNumber(p.WeightKg)+" kg")
	}
	if p.Has(models.FieldHeight) {
		parts = append(parts, models.FormatNumber(p.HeightCm)+" cm")
	}
	if p.Has(models.FieldActivityLevel) {
		parts = append(parts, "atividade "+p.ActivityLevel.Label())
	}
	if p.Has(models.FieldGoal) {
		parts = append(parts, "objetivo "+p.Goal.Label())
	}
	if len(parts) == 0 {
		return "(nenhum dado ainda)"
	}
	return strings.Join(parts, ", ")
}
