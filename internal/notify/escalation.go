package notify

import (
	"context"
	"fmt"

	"github.com/atendeja/clinic-ai-platform/internal/clinic"
	"github.com/atendeja/clinic-ai-platform/pkg/logging"
)

// EscalationNotifier emails clinic staff when a conversation needs a human.
type EscalationNotifier struct {
	sender EmailSender
	logger *logging.Logger
}

// NewEscalationNotifier wires the notifier. A nil sender disables delivery
// without disabling the rest of the pipeline.
func NewEscalationNotifier(sender EmailSender, logger *logging.Logger) *EscalationNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &EscalationNotifier{sender: sender, logger: logger}
}

// NotifyEscalation sends the handoff email to the clinic's scheduling inbox.
func (n *EscalationNotifier) NotifyEscalation(ctx context.Context, cc *clinic.Context, phoneNumber, lastMessage string) error {
	if n == nil || n.sender == nil {
		return nil
	}
	to := cc.SchedulingEmail()
	if to == "" {
		n.logger.Warn("escalation requested but clinic has no department email", "clinic_id", cc.ID)
		return nil
	}

	body := fmt.Sprintf(
		"Um paciente precisa de atendimento humano.\n\n"+
			"Clínica: %s\nTelefone do paciente: %s\nÚltima mensagem: %s\n\n"+
			"O assistente não conseguiu concluir o atendimento automaticamente.",
		cc.Name, phoneNumber, lastMessage)

	msg := EmailMessage{
		To:      to,
		ToName:  cc.Name,
		Subject: fmt.Sprintf("[%s] Atendimento precisa de ajuda humana", cc.Name),
		Body:    body,
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: escalation email failed: %w", err)
	}
	n.logger.Info("escalation email sent", "clinic_id", cc.ID, "to", to)
	return nil
}
