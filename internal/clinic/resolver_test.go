package clinic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardioPrimeDoc = `{
	"id": "cardioprime",
	"nome": "Clínica CardioPrime",
	"endereco": {"rua": "Av. Afonso Pena", "numero": "1500", "bairro": "Centro", "cidade": "Belo Horizonte", "estado": "MG", "cep": "30130-005"},
	"contato": {"telefonePrincipal": "(31) 3222-4000", "whatsapp": "+5531999990000", "email": "contato@cardioprime.com.br"},
	"servicos": {
		"consultas": [
			{"nome": "Consulta Cardiológica", "duracaoMinutos": 30, "preco": "R$ 350", "convenios": ["Unimed", "Bradesco Saúde"]}
		],
		"exames": [
			{"nome": "Eletrocardiograma", "duracaoMinutos": 20, "preco": "R$ 120"},
			{"nome": "Teste Ergométrico", "duracaoMinutos": 45, "preco": "R$ 280"}
		]
	},
	"profissionais": [
		{"nome": "Dra. Helena Martins", "especialidade": "Cardiologia", "crm": "CRM-MG 45678"}
	],
	"especialidades": ["Cardiologia"],
	"horarioFuncionamento": {
		"Segunda": {"abertura": "08:00", "fechamento": "18:00"},
		"terca": {"abertura": "08:00", "fechamento": "18:00"}
	},
	"formasPagamento": ["Pix", "Cartão de crédito"],
	"convenios": [{"nome": "Unimed", "coparticipacao": "R$ 20"}],
	"emailsDepartamentos": {"agendamento": "agenda@cardioprime.com.br"},
	"politicasAgendamento": ["Cancelamentos com menos de 24h estão sujeitos a cobrança."],
	"parcerias": ["Laboratório Vida"],
	"fusoHorario": "America/Sao_Paulo",
	"agente": {
		"nome": "Ana",
		"tom": "acolhedor",
		"formalidade": "informal",
		"saudacaoInicial": "Olá! Sou a Ana, assistente virtual da Clínica CardioPrime.",
		"mensagemForaHorario": "Estamos fora do horário de atendimento. Retornaremos em breve!",
		"comportamento": {"proativo": true, "sugereServicos": true, "escalaParaHumano": true, "maxTentativas": 3},
		"restricoes": {"naoDiagnostica": true, "naoPrescreve": true, "orientacaoEmergencia": ["Em caso de dor no peito, ligue 192 imediatamente."]}
	}
}`

func TestResolveFullDocument(t *testing.T) {
	cc := Resolve("cardioprime", []byte(cardioPrimeDoc))
	require.NotNil(t, cc)

	assert.Equal(t, "cardioprime", cc.ID)
	assert.Equal(t, "Clínica CardioPrime", cc.Name)
	assert.Equal(t, "Av. Afonso Pena, 1500 - Centro - Belo Horizonte - MG - 30130-005", cc.Address)
	assert.Equal(t, "(31) 3222-4000", cc.Phone)

	require.Len(t, cc.Services, 3)
	assert.Equal(t, "Consulta Cardiológica", cc.Services[0].Name)
	assert.Equal(t, "consulta", cc.Services[0].Type)
	assert.Equal(t, 30, cc.Services[0].DurationMin)
	assert.Equal(t, []string{"Unimed", "Bradesco Saúde"}, cc.Services[0].Insurance)
	assert.Equal(t, "exame", cc.Services[1].Type)

	require.Len(t, cc.Professionals, 1)
	assert.Equal(t, "Dra. Helena Martins", cc.Professionals[0].Name)

	// Weekday keys are lower-cased on the way in.
	require.Contains(t, cc.WorkingHours, "segunda")
	assert.Equal(t, DayHours{Open: "08:00", Close: "18:00"}, cc.WorkingHours["segunda"])

	require.Len(t, cc.Insurance, 1)
	assert.Equal(t, "R$ 20", cc.Insurance[0].CoPay)

	assert.Equal(t, "agenda@cardioprime.com.br", cc.SchedulingEmail())

	assert.Equal(t, "Ana", cc.Agent.Name)
	assert.True(t, cc.Behavior.EscalatesToHuman)
	assert.Equal(t, 3, cc.Behavior.MaxAttempts)
	assert.True(t, cc.Restrictions.CannotDiagnose)
	require.Len(t, cc.Restrictions.EmergencyGuidance, 1)
}

func TestResolveEmptyDocumentUsesDefaults(t *testing.T) {
	cc := Resolve("nova-clinica", []byte(`{}`))
	require.NotNil(t, cc)

	assert.Equal(t, "nova-clinica", cc.ID)
	assert.Equal(t, "Clínica", cc.Name)
	assert.Empty(t, cc.Services)
	assert.Equal(t, "America/Sao_Paulo", cc.Timezone)
	assert.Equal(t, "Assistente", cc.Agent.Name)
	assert.Equal(t, 3, cc.Behavior.MaxAttempts)
	assert.True(t, cc.Restrictions.CannotDiagnose)
	assert.True(t, cc.Restrictions.CannotPrescribe)
	assert.NotEmpty(t, cc.OutOfHoursMessage())
}

func TestResolveMalformedDocumentDoesNotPanic(t *testing.T) {
	cc := Resolve("quebrada", []byte(`{"nome": 42, "servicos": "sim"`))
	require.NotNil(t, cc)
	assert.Equal(t, "quebrada", cc.ID)
}

func TestResolvePhoneFallsBackToWhatsApp(t *testing.T) {
	cc := Resolve("c1", []byte(`{"contato": {"whatsapp": "+5531988887777"}}`))
	assert.Equal(t, "+5531988887777", cc.Phone)
}

func TestSchedulingEmailFallsBackToAnyDepartment(t *testing.T) {
	cc := Resolve("c1", []byte(`{"emailsDepartamentos": {"financeiro": "fin@clinica.com"}}`))
	assert.Equal(t, "fin@clinica.com", cc.SchedulingEmail())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cc := Resolve("c1", []byte(`{"fusoHorario": "Marte/Olympus"}`))
	assert.Equal(t, "UTC", cc.Location().String())
}
