package assistant_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Roan1982/saraianew/internal/assistant"
	"github.com/Roan1982/saraianew/internal/domain"
	"github.com/Roan1982/saraianew/internal/observability"
	"github.com/Roan1982/saraianew/internal/persistence/memory"
)

func TestClassify(t *testing.T) {
	cases := map[assistant.Intent][]string{
		assistant.IntentGreeting:      {"hola", "buenos días", "Hola SARA", "saludos"},
		assistant.IntentPersonal:      {"como te llamas", "quien eres", "qué eres", "que eres", "tu nombre"},
		assistant.IntentHelp:          {"ayuda", "necesito ayuda", "puedes ayudarme"},
		assistant.IntentProductivity:  {"productividad", "productivo", "eficiencia", "rendimiento"},
		assistant.IntentExcel:         {"excel", "formula", "fórmula", "hoja", "spreadsheet", "calcul", "ayuda con excel"},
		assistant.IntentErrors:        {"tengo un error", "no funciona", "problema técnico", "tengo errores"},
		assistant.IntentMath:          {"2 + 2", "10 * 5", "cuanto es 15 / 3", "10 menos 3", "5 por 3", "10 entre 0"},
		assistant.IntentSpelling:      {"cómo se escribe", "ortografía", "palabra correcta", "como se escribe mas"},
		assistant.IntentDocumentation: {"manual", "guía de uso", "documentación"},
		assistant.IntentConfiguration: {"configurar", "setup", "cómo instalar"},
		assistant.IntentReports:       {"estadistica", "estadística", "grafico", "gráfico", "analisis", "análisis", "dashboard"},
		assistant.IntentTeam:          {"equipo", "compañeros", "colaboracion", "colaboración"},
		assistant.IntentHealth:        {"salud", "bienestar", "cansado", "estrés"},
		assistant.IntentGoals:         {"meta", "objetivo", "logro", "progreso"},
		assistant.IntentFarewell:      {"adiós", "hasta luego"},
		assistant.IntentThanks:        {"gracias", "excelente"},
		assistant.IntentTime:          {"cuantas horas llevo", "tiempo"},
		assistant.IntentTips:          {"dame un consejo"},
		assistant.IntentProgramming:   {"código en python"},
		assistant.IntentStatus:        {"cuál es mi estado"},
		assistant.IntentGeneral:       {"mensaje normal", "consulta general", "pregunta cualquiera"},
	}
	for want, messages := range cases {
		for _, msg := range messages {
			require.Equal(t, want, assistant.Classify(msg), "message %q", msg)
		}
	}
}

func TestParseExpression(t *testing.T) {
	cases := []struct {
		in     string
		render string
		result float64
	}{
		{"2 + 2", "2 + 2", 4},
		{"cuanto es 15 / 3", "15 / 3", 5},
		{"10 menos 3", "10 - 3", 7},
		{"5 por 3", "5 * 3", 15},
		{"10 entre 4", "10 / 4", 2.5},
		{"1,5 mas 1", "1.5 + 1", 2.5},
		{"-4 * 2", "-4 * 2", -8},
	}
	for _, tc := range cases {
		expr, ok := assistant.ParseExpression(tc.in)
		require.True(t, ok, tc.in)
		require.Equal(t, tc.render, expr.String())
		got, err := expr.Eval()
		require.NoError(t, err)
		require.InDelta(t, tc.result, got, 1e-9)
	}

	_, ok := assistant.ParseExpression("sin números")
	require.False(t, ok)
}

func TestDivisionByZero(t *testing.T) {
	expr, ok := assistant.ParseExpression("10 entre 0")
	require.True(t, ok)
	_, err := expr.Eval()
	require.ErrorIs(t, err, assistant.ErrDivisionByZero)
}

type fixture struct {
	repo *memory.Repository
	svc  *domain.Service
	bot  *assistant.Assistant
	user domain.User
}

func newFixture(t *testing.T, now time.Time) fixture {
	t.Helper()
	repo := memory.NewRepository()
	user, err := repo.UpsertUser(context.Background(), domain.User{Username: "testuser", FirstName: "Test", Role: domain.RoleEmployee})
	require.NoError(t, err)
	svc := domain.NewService(repo, domain.Options{Clock: domain.ClockFunc(func() time.Time { return now })})
	return fixture{repo: repo, svc: svc, bot: assistant.New(svc, assistant.Options{}), user: user}
}

func TestReplies(t *testing.T) {
	afternoon := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	f := newFixture(t, afternoon)
	ctx := context.Background()

	reply, err := f.bot.Reply(ctx, f.user.ID, "hola", afternoon)
	require.NoError(t, err)
	require.Equal(t, assistant.IntentGreeting, reply.Intent)
	require.Contains(t, strings.ToLower(reply.Text), "buenas tardes")
	require.Contains(t, reply.Text, "SARA")
	require.Contains(t, reply.Text, "Test")

	reply, err = f.bot.Reply(ctx, f.user.ID, "hola", afternoon.Add(-6*time.Hour))
	require.NoError(t, err)
	require.Contains(t, strings.ToLower(reply.Text), "buenos días")

	reply, err = f.bot.Reply(ctx, f.user.ID, "ayuda con excel", afternoon)
	require.NoError(t, err)
	require.Contains(t, strings.ToLower(reply.Text), "excel")
	require.Contains(t, strings.ToLower(reply.Text), "fórmula")

	reply, err = f.bot.Reply(ctx, f.user.ID, "cuanto es 2 + 2", afternoon)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "2 + 2 = 4")

	reply, err = f.bot.Reply(ctx, f.user.ID, "10 menos 3", afternoon)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "10 - 3 = 7")

	reply, err = f.bot.Reply(ctx, f.user.ID, "5 por 3", afternoon)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "15")

	reply, err = f.bot.Reply(ctx, f.user.ID, "10 entre 2", afternoon)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "10 / 2 = 5")

	reply, err = f.bot.Reply(ctx, f.user.ID, "10 entre 0", afternoon)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "división por cero")

	reply, err = f.bot.Reply(ctx, f.user.ID, "como se escribe mas", afternoon)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "más")
	require.Contains(t, strings.ToLower(reply.Text), "acento")
}

func TestPersonalisedReplies(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	ctx := context.Background()

	reply, err := f.bot.Reply(ctx, f.user.ID, "mi productividad", now)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "No tengo suficientes datos")

	events := make([]domain.RawEvent, 0, 10)
	for i := 0; i < 10; i++ {
		events = append(events, domain.RawEvent{
			Timestamp:    now.Add(-time.Duration(i) * time.Minute).Format(time.RFC3339),
			ActiveWindow: "Excel",
			Productivity: "productive",
		})
	}
	_, err = f.svc.Ingest(ctx, domain.IngestInput{MachineID: "PC-01", UserID: f.user.ID, Events: events})
	require.NoError(t, err)

	reply, err = f.bot.Reply(ctx, f.user.ID, "mi productividad", now)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "10/100")
	require.Contains(t, reply.Text, "Necesitas enfocarte")

	reply, err = f.bot.Reply(ctx, f.user.ID, "cuanto tiempo llevo", now)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "5 minutos")

	reply, err = f.bot.Reply(ctx, f.user.ID, "dame un consejo", now)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "Consejos recientes")
}

func TestReplyUnknownUser(t *testing.T) {
	f := newFixture(t, time.Now())
	_, err := f.bot.Reply(context.Background(), 404, "hola", time.Now())
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

type shoutingModel struct{}

func (shoutingModel) Refine(_ context.Context, _ assistant.Intent, _ string, reply string) string {
	return strings.ToUpper(reply)
}

func TestModelRefinesReply(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	bot := assistant.New(f.svc, assistant.Options{Model: shoutingModel{}})

	before := testutil.ToFloat64(observability.ChatIntentCount(string(assistant.IntentMath)))
	reply, err := bot.Reply(context.Background(), f.user.ID, "2 + 2", now)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "EL RESULTADO ES")
	require.Equal(t, before+1, testutil.ToFloat64(observability.ChatIntentCount(string(assistant.IntentMath))))
}
