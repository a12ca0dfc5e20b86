package clinic

import (
	"encoding/json"
	"strings"
)

// rawDocument mirrors the clinic onboarding document as stored. All fields are
// optional; the resolver supplies neutral defaults for anything missing.
type rawDocument struct {
	ID       string `json:"id"`
	Nome     string `json:"nome"`
	Endereco *struct {
		Rua    string `json:"rua"`
		Numero string `json:"numero"`
		Bairro string `json:"bairro"`
		Cidade string `json:"cidade"`
		Estado string `json:"estado"`
		CEP    string `json:"cep"`
	} `json:"endereco"`
	Contato *struct {
		TelefonePrincipal string `json:"telefonePrincipal"`
		WhatsApp          string `json:"whatsapp"`
		Email             string `json:"email"`
	} `json:"contato"`
	Servicos *struct {
		Consultas []rawService `json:"consultas"`
		Exames    []rawService `json:"exames"`
	} `json:"servicos"`
	Profissionais []struct {
		Nome          string `json:"nome"`
		Especialidade string `json:"especialidade"`
		CRM           string `json:"crm"`
	} `json:"profissionais"`
	Especialidades       []string `json:"especialidades"`
	HorarioFuncionamento map[string]struct {
		Abertura   string `json:"abertura"`
		Fechamento string `json:"fechamento"`
	} `json:"horarioFuncionamento"`
	FormasPagamento []string `json:"formasPagamento"`
	Convenios       []struct {
		Nome           string `json:"nome"`
		Coparticipacao string `json:"coparticipacao"`
	} `json:"convenios"`
	EmailsDepartamentos  map[string]string `json:"emailsDepartamentos"`
	PoliticasAgendamento []string          `json:"politicasAgendamento"`
	PoliticasServicos    []string          `json:"politicasServicos"`
	Parcerias            []string          `json:"parcerias"`
	FusoHorario          string            `json:"fusoHorario"`
	Agente               *struct {
		Nome            string `json:"nome"`
		Personalidade   string `json:"personalidade"`
		Tom             string `json:"tom"`
		Formalidade     string `json:"formalidade"`
		SaudacaoInicial string `json:"saudacaoInicial"`
		Despedida       string `json:"despedida"`
		MensagemFora    string `json:"mensagemForaHorario"`
		Comportamento   *struct {
			Proativo        *bool `json:"proativo"`
			SugereServicos  *bool `json:"sugereServicos"`
			EscalaParaHuman *bool `json:"escalaParaHumano"`
			MaxTentativas   int   `json:"maxTentativas"`
		} `json:"comportamento"`
		Restricoes *struct {
			NaoDiagnostica       *bool    `json:"naoDiagnostica"`
			NaoPrescreve         *bool    `json:"naoPrescreve"`
			OrientacaoEmergencia []string `json:"orientacaoEmergencia"`
		} `json:"restricoes"`
	} `json:"agente"`
}

type rawService struct {
	Nome           string   `json:"nome"`
	DuracaoMinutos int      `json:"duracaoMinutos"`
	Preco          string   `json:"preco"`
	Convenios      []string `json:"convenios"`
}

const (
	defaultAgentName   = "Assistente"
	defaultTimezone    = "America/Sao_Paulo"
	defaultMaxAttempts = 3
)

// Resolve flattens a raw clinic document into a Context. It never fails:
// malformed or missing branches resolve to neutral defaults, so callers only
// need to handle the wholly-absent-record case at the store level.
func Resolve(clinicID string, raw []byte) *Context {
	var doc rawDocument
	if len(raw) > 0 {
		// A broken document degrades to defaults rather than dropping the message.
		_ = json.Unmarshal(raw, &doc)
	}

	cc := &Context{
		ID:               firstNonEmpty(doc.ID, clinicID),
		Name:             firstNonEmpty(doc.Nome, "Clínica"),
		Address:          buildAddress(doc),
		Phone:            resolvePhone(doc),
		Services:         mergeCatalogs(doc),
		Specialties:      doc.Especialidades,
		PaymentMethods:   doc.FormasPagamento,
		DepartmentEmails: doc.EmailsDepartamentos,
		BookingPolicies:  doc.PoliticasAgendamento,
		ServicePolicies:  doc.PoliticasServicos,
		Partnerships:     doc.Parcerias,
		Timezone:         firstNonEmpty(doc.FusoHorario, defaultTimezone),
	}

	for _, p := range doc.Profissionais {
		if strings.TrimSpace(p.Nome) == "" {
			continue
		}
		cc.Professionals = append(cc.Professionals, Professional{
			Name:      p.Nome,
			Specialty: p.Especialidade,
			License:   p.CRM,
		})
	}

	if len(doc.HorarioFuncionamento) > 0 {
		cc.WorkingHours = make(map[string]DayHours, len(doc.HorarioFuncionamento))
		for day, h := range doc.HorarioFuncionamento {
			cc.WorkingHours[strings.ToLower(strings.TrimSpace(day))] = DayHours{
				Open:  strings.TrimSpace(h.Abertura),
				Close: strings.TrimSpace(h.Fechamento),
			}
		}
	}

	for _, conv := range doc.Convenios {
		if strings.TrimSpace(conv.Nome) == "" {
			continue
		}
		cc.Insurance = append(cc.Insurance, InsurancePlan{
			Name:  conv.Nome,
			CoPay: conv.Coparticipacao,
		})
	}

	cc.Agent = Persona{Name: defaultAgentName}
	cc.Behavior = Behavior{MaxAttempts: defaultMaxAttempts}
	cc.Restrictions = Restrictions{CannotDiagnose: true, CannotPrescribe: true}
	if a := doc.Agente; a != nil {
		cc.Agent = Persona{
			Name:              firstNonEmpty(a.Nome, defaultAgentName),
			Personality:       a.Personalidade,
			Tone:              a.Tom,
			Formality:         a.Formalidade,
			InitialGreeting:   a.SaudacaoInicial,
			Farewell:          a.Despedida,
			OutOfHoursMessage: a.MensagemFora,
		}
		if b := a.Comportamento; b != nil {
			cc.Behavior = Behavior{
				Proactive:        boolOr(b.Proativo, false),
				SuggestsServices: boolOr(b.SugereServicos, false),
				EscalatesToHuman: boolOr(b.EscalaParaHuman, false),
				MaxAttempts:      b.MaxTentativas,
			}
		}
		if r := a.Restricoes; r != nil {
			cc.Restrictions = Restrictions{
				CannotDiagnose:    boolOr(r.NaoDiagnostica, true),
				CannotPrescribe:   boolOr(r.NaoPrescreve, true),
				EmergencyGuidance: r.OrientacaoEmergencia,
			}
		}
	}
	if cc.Behavior.MaxAttempts <= 0 {
		cc.Behavior.MaxAttempts = defaultMaxAttempts
	}

	return cc
}

func buildAddress(doc rawDocument) string {
	e := doc.Endereco
	if e == nil {
		return ""
	}
	var parts []string
	street := strings.TrimSpace(e.Rua)
	if street != "" && strings.TrimSpace(e.Numero) != "" {
		street += ", " + strings.TrimSpace(e.Numero)
	}
	for _, p := range []string{street, e.Bairro, e.Cidade, e.Estado, e.CEP} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " - ")
}

func resolvePhone(doc rawDocument) string {
	c := doc.Contato
	if c == nil {
		return ""
	}
	return firstNonEmpty(c.TelefonePrincipal, c.WhatsApp)
}

// mergeCatalogs joins the consultation and exam catalogs into one services
// list, retaining per-item metadata.
func mergeCatalogs(doc rawDocument) []Service {
	s := doc.Servicos
	if s == nil {
		return nil
	}
	var services []Service
	appendAll := func(items []rawService, typ string) {
		for _, item := range items {
			if strings.TrimSpace(item.Nome) == "" {
				continue
			}
			services = append(services, Service{
				Name:        item.Nome,
				Type:        typ,
				DurationMin: item.DuracaoMinutos,
				Price:       item.Preco,
				Insurance:   item.Convenios,
			})
		}
	}
	appendAll(s.Consultas, "consulta")
	appendAll(s.Exames, "exame")
	return services
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
