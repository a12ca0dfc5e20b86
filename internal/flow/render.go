package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/atendeja/clinic-ai-platform/internal/calendar"
	"github.com/atendeja/clinic-ai-platform/internal/clinic"
)

var weekdayNames = [...]string{"domingo", "segunda", "terça", "quarta", "quinta", "sexta", "sábado"}

// renderServiceList builds the numbered menu shown when a flow opens.
func renderServiceList(services []clinic.Service) string {
	var b strings.Builder
	b.WriteString("Claro! Esses são os atendimentos disponíveis:\n\n")
	for i, svc := range services {
		b.WriteString(fmt.Sprintf("%d. %s", i+1, svc.Name))
		var details []string
		if svc.Type != "" {
			details = append(details, svc.Type)
		}
		if svc.DurationMin > 0 {
			details = append(details, fmt.Sprintf("%d min", svc.DurationMin))
		}
		if len(details) > 0 {
			b.WriteString(" (" + strings.Join(details, ", ") + ")")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nResponda com o número ou o nome do atendimento desejado.")
	return b.String()
}

// renderSlotList builds the numbered list of openings for a service.
func renderSlotList(serviceName string, slots []calendar.Slot, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Perfeito! Encontrei esses horários para %s:\n\n", serviceName))
	for i, slot := range slots {
		b.WriteString(fmt.Sprintf("%d. %s às %s\n", i+1, slotDateLabel(slot, loc), slot.StartTime))
	}
	b.WriteString("\nResponda com o número do horário que preferir.")
	return b.String()
}

// renderConfirmation summarizes the pending booking before the final yes/no.
func renderConfirmation(service clinic.Service, slot calendar.Slot, loc *time.Location, patientName string) string {
	var b strings.Builder
	b.WriteString("Vamos confirmar seu agendamento:\n\n")
	if patientName != "" {
		b.WriteString(fmt.Sprintf("Paciente: %s\n", patientName))
	}
	b.WriteString(fmt.Sprintf("Atendimento: %s\n", service.Name))
	b.WriteString(fmt.Sprintf("Data: %s às %s\n", slotDateLabel(slot, loc), slot.StartTime))
	if service.DurationMin > 0 {
		b.WriteString(fmt.Sprintf("Duração: %d min\n", service.DurationMin))
	}
	b.WriteString("\nPosso confirmar? Responda \"sim\" para confirmar ou \"não\" para cancelar.")
	return b.String()
}

// slotDateLabel renders "02/09 (quarta)" in clinic-local terms.
func slotDateLabel(slot calendar.Slot, loc *time.Location) string {
	at, err := slot.StartAt(loc)
	if err != nil {
		return shortDate(slot.Date)
	}
	return fmt.Sprintf("%s (%s)", shortDate(slot.Date), weekdayNames[int(at.Weekday())])
}
