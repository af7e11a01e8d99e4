// Package assistant implements the SARA chat keyword router.
package assistant

import "strings"

// Intent is the classified purpose of a chat message.
type Intent string

const (
	IntentGreeting      Intent = "saludo"
	IntentFarewell      Intent = "despedida"
	IntentThanks        Intent = "agradecimiento"
	IntentPersonal      Intent = "pregunta_personal"
	IntentMath          Intent = "matematicas"
	IntentExcel         Intent = "excel"
	IntentSpelling      Intent = "ortografia"
	IntentErrors        Intent = "errores"
	IntentHelp          Intent = "ayuda"
	IntentProductivity  Intent = "productividad"
	IntentTime          Intent = "tiempo"
	IntentTips          Intent = "consejos"
	IntentDocumentation Intent = "documentacion"
	IntentConfiguration Intent = "configuracion"
	IntentReports       Intent = "reportes"
	IntentTeam          Intent = "equipo"
	IntentHealth        Intent = "salud"
	IntentGoals         Intent = "metas"
	IntentProgramming   Intent = "programacion"
	IntentStatus        Intent = "estado"
	IntentGeneral       Intent = "general"
)

type matcher struct {
	intent Intent
	match  func(lower string) bool
}

func keywords(words ...string) func(string) bool {
	return func(lower string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
}

// evaluated in order; the first hit wins
var matchers = []matcher{
	{IntentGreeting, keywords("hola", "buenos días", "buenos dias", "buenas tardes", "buenas noches", "saludos")},
	{IntentFarewell, keywords("adiós", "adios", "hasta luego", "hasta mañana", "nos vemos", "chao", "bye")},
	{IntentThanks, keywords("gracias", "te agradezco", "excelente", "genial", "perfecto")},
	{IntentPersonal, keywords("como te llamas", "cómo te llamas", "quien eres", "quién eres", "qué eres", "que eres", "tu nombre")},
	{IntentMath, func(lower string) bool { return arithmeticPattern.MatchString(lower) }},
	{IntentExcel, keywords("excel", "formula", "fórmula", "hoja", "spreadsheet", "calcul", "cálcul")},
	{IntentSpelling, keywords("se escribe", "ortografía", "ortografia", "palabra", "acento", "tilde")},
	{IntentErrors, keywords("error", "no funciona", "problema", "falla", "bug")},
	{IntentHelp, keywords("ayuda", "ayudar", "help", "asistencia")},
	{IntentProductivity, keywords("productiv", "eficien", "rendimiento")},
	{IntentTime, keywords("tiempo", "horas", "jornada", "cuanto trabaj", "cuánto trabaj")},
	{IntentTips, keywords("consejo", "tips", "recomend", "sugerencia")},
	{IntentDocumentation, keywords("manual", "guía", "guia", "documentaci", "tutorial")},
	{IntentConfiguration, keywords("configur", "setup", "instalar", "instalación", "ajustes")},
	{IntentReports, keywords("reporte", "informe", "estadistic", "estadístic", "grafico", "gráfico", "analisis", "análisis", "dashboard")},
	{IntentTeam, keywords("equipo", "compañer", "colabora")},
	{IntentHealth, keywords("salud", "bienestar", "cansad", "estrés", "estres", "descanso", "pausa")},
	{IntentGoals, keywords("meta", "objetivo", "logro", "progreso")},
	{IntentProgramming, keywords("programa", "código", "codigo", "python", "javascript", "debug", "función")},
	{IntentStatus, keywords("estado", "status", "situación", "situacion", "como voy", "cómo voy")},
}

// Classify returns the first intent whose predicate matches message.
func Classify(message string) Intent {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, m := range matchers {
		if m.match(lower) {
			return m.intent
		}
	}
	return IntentGeneral
}
