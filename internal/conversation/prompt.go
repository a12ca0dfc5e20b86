package conversation

import (
	"fmt"
	"strings"

	"github.com/atendeja/clinic-ai-platform/internal/clinic"
)

// weekdayOrder keeps the hours section readable in the prompt.
var weekdayOrder = []string{"segunda", "terca", "quarta", "quinta", "sexta", "sabado", "domingo"}

// BuildSystemPrompt renders the clinic context into the persona prompt used
// for general Q&A turns. The booking flow never goes through the model, so
// the prompt steers it back to structured replies.
func BuildSystemPrompt(cc *clinic.Context) string {
	var b strings.Builder

	agent := cc.Agent.Name
	if agent == "" {
		agent = "Assistente"
	}
	fmt.Fprintf(&b, "Você é %s, assistente virtual da clínica %s.\n", agent, cc.Name)
	if cc.Agent.Personality != "" {
		fmt.Fprintf(&b, "Personalidade: %s.\n", cc.Agent.Personality)
	}
	if cc.Agent.Tone != "" {
		fmt.Fprintf(&b, "Tom: %s.\n", cc.Agent.Tone)
	}
	if cc.Agent.Formality != "" {
		fmt.Fprintf(&b, "Formalidade: %s.\n", cc.Agent.Formality)
	}

	b.WriteString("\nREGRAS:\n")
	b.WriteString("- Responda sempre em português brasileiro, em mensagens curtas de chat.\n")
	b.WriteString("- Use somente as informações da clínica listadas abaixo. Não invente preços, horários nem serviços.\n")
	b.WriteString("- Não se apresente novamente no meio da conversa.\n")
	if cc.Restrictions.CannotDiagnose {
		b.WriteString("- Nunca faça diagnósticos. Oriente o paciente a consultar um profissional.\n")
	}
	if cc.Restrictions.CannotPrescribe {
		b.WriteString("- Nunca prescreva medicamentos ou tratamentos.\n")
	}
	if cc.Behavior.SuggestsServices {
		b.WriteString("- Quando fizer sentido, sugira serviços da clínica relacionados à dúvida do paciente.\n")
	}
	b.WriteString("- Se o paciente quiser agendar, diga que pode ajudar com o agendamento por aqui mesmo.\n")

	fmt.Fprintf(&b, "\nCLÍNICA: %s\n", cc.Name)
	if cc.Address != "" {
		fmt.Fprintf(&b, "Endereço: %s\n", cc.Address)
	}
	if cc.Phone != "" {
		fmt.Fprintf(&b, "Telefone: %s\n", cc.Phone)
	}

	if len(cc.Services) > 0 {
		b.WriteString("\nSERVIÇOS:\n")
		for _, svc := range cc.Services {
			line := "- " + svc.Name
			var details []string
			if svc.DurationMin > 0 {
				details = append(details, fmt.Sprintf("%d min", svc.DurationMin))
			}
			if svc.Price != "" {
				details = append(details, svc.Price)
			}
			if len(details) > 0 {
				line += " (" + strings.Join(details, ", ") + ")"
			}
			b.WriteString(line + "\n")
		}
	}

	if len(cc.Professionals) > 0 {
		b.WriteString("\nPROFISSIONAIS:\n")
		for _, p := range cc.Professionals {
			if p.Specialty != "" {
				fmt.Fprintf(&b, "- %s (%s)\n", p.Name, p.Specialty)
			} else {
				fmt.Fprintf(&b, "- %s\n", p.Name)
			}
		}
	}

	if len(cc.WorkingHours) > 0 {
		b.WriteString("\nHORÁRIO DE FUNCIONAMENTO:\n")
		for _, day := range weekdayOrder {
			if h, ok := cc.WorkingHours[day]; ok {
				fmt.Fprintf(&b, "- %s: %s às %s\n", day, h.Open, h.Close)
			}
		}
	}

	if len(cc.Insurance) > 0 {
		b.WriteString("\nCONVÊNIOS ACEITOS:\n")
		for _, plan := range cc.Insurance {
			if plan.CoPay != "" {
				fmt.Fprintf(&b, "- %s (coparticipação: %s)\n", plan.Name, plan.CoPay)
			} else {
				fmt.Fprintf(&b, "- %s\n", plan.Name)
			}
		}
	}
	if len(cc.PaymentMethods) > 0 {
		fmt.Fprintf(&b, "\nFORMAS DE PAGAMENTO: %s\n", strings.Join(cc.PaymentMethods, ", "))
	}
	if len(cc.BookingPolicies) > 0 {
		b.WriteString("\nPOLÍTICAS DE AGENDAMENTO:\n")
		for _, p := range cc.BookingPolicies {
			b.WriteString("- " + p + "\n")
		}
	}

	return b.String()
}
