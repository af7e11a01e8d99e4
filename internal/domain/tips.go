package domain

import "strings"

// AppKind is the coarse application family of a window label.
type AppKind string

const (
	AppSpreadsheet    AppKind = "spreadsheet"
	AppWordProcessor  AppKind = "word-processor"
	AppIDE            AppKind = "ide"
	AppBrowser        AppKind = "browser"
	AppCommunications AppKind = "communications"
	AppOther          AppKind = ""
)

type appProfile struct {
	kind     AppKind
	keywords []string
	tips     []string
}

// checked in order; the first keyword hit classifies the label
var appProfiles = []appProfile{
	{
		kind:     AppSpreadsheet,
		keywords: []string{"excel", "spreadsheet", "calc", "sheets"},
		tips: []string{
			"⏰ Llevas tiempo considerable en Excel. ¿Necesitas ayuda con alguna fórmula específica?",
			"💡 Usa Ctrl+T para convertir tus datos en tabla y aplicar filtros rápidamente",
		},
	},
	{
		kind:     AppWordProcessor,
		keywords: []string{"word", "docs", "writer"},
		tips: []string{
			"⏰ Estás trabajando intensamente en el documento. ¿Quieres consejos de formato o estructura?",
			"💡 Usa estilos de título para generar un índice automático",
		},
	},
	{
		kind:     AppIDE,
		keywords: []string{"vscode", "visual studio", "pycharm", "intellij", "eclipse", "sublime", "atom"},
		tips: []string{
			"⏰ Sesión de codificación prolongada. ¿Necesitas ayuda con debugging o mejores prácticas?",
			"💡 Haz commits pequeños y frecuentes para no perder el hilo",
		},
	},
	{
		kind:     AppBrowser,
		keywords: []string{"chrome", "firefox", "edge", "safari", "opera"},
		tips: []string{
			"⏰ Mucho tiempo navegando. ¿Estás investigando algo específico o necesitas organizar mejor tus pestañas?",
		},
	},
	{
		kind:     AppCommunications,
		keywords: []string{"outlook", "gmail", "teams", "slack", "discord", "whatsapp", "telegram"},
		tips: []string{
			"⏰ Llevas un buen rato en mensajería. Agrupa tus respuestas en bloques para proteger tu concentración",
		},
	},
}

// ClassifyApp maps a window label to its application family.
func ClassifyApp(label string) AppKind {
	lower := strings.ToLower(label)
	for _, p := range appProfiles {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return p.kind
			}
		}
	}
	return AppOther
}

// AppTips returns the canned tips for kind.
func AppTips(kind AppKind) []string {
	for _, p := range appProfiles {
		if p.kind == kind {
			return p.tips
		}
	}
	return nil
}

const (
	tipLowRatio     = "📊 Tu productividad ha bajado. ¿Hay alguna distracción que pueda ayudarte a eliminar?"
	tipPomodoro     = "💡 Prueba la Técnica Pomodoro: 25 min trabajo + 5 min descanso"
	tipDominance    = "⚠️ En la última hora predominan las actividades no productivas. Intenta retomar tu tarea principal"
	tipCoffee       = "🌅 Hora del café matutino. Un descanso breve puede recargar tu energía"
	tipLunch        = "🍽️ Hora del almuerzo. Una comida balanceada mejora la concentración de la tarde"
	tipWrapUp       = "🌅 Finalizando la jornada. ¿Has revisado tus objetivos del día?"
	tipEvening      = "🏠 Considera finalizar tus tareas pendientes. Mañana será otro día productivo"
	tipOffHours     = "🌙 Estás trabajando fuera del horario habitual. Recuerda que el descanso también es productivo"
	tipLongDay      = "😴 Llevas más de 8 horas trabajando hoy. Es momento de descansar"
	tipLongStretch  = "☕ Has trabajado más de 6 horas. Considera tomar un descanso de 15 minutos"
	tipLowScore     = "📈 Tu puntuación de productividad es baja. ¿Quieres que te ayude a mejorar?"
	tipOnboarding   = "📊 ¡Bienvenido! Te ayudaré a mejorar tu productividad. Empecemos con algunos consejos básicos"
	tipGamingInWork = "🎮 Se detectó actividad de juegos en horario laboral. Reserva el ocio para después de la jornada"
)
