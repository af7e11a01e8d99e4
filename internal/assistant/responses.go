package assistant

import (
	"errors"
	"fmt"
	"strings"
)

type responder func(p *profile, message string) string

var responders = map[Intent]responder{
	IntentGreeting:      greeting,
	IntentFarewell:      farewell,
	IntentThanks:        thanks,
	IntentPersonal:      personal,
	IntentMath:          arithmetic,
	IntentExcel:         excel,
	IntentSpelling:      spelling,
	IntentErrors:        troubleshooting,
	IntentHelp:          help,
	IntentProductivity:  productivity,
	IntentTime:          timeManagement,
	IntentTips:          tips,
	IntentDocumentation: documentation,
	IntentConfiguration: configuration,
	IntentReports:       reports,
	IntentTeam:          team,
	IntentHealth:        health,
	IntentGoals:         goals,
	IntentProgramming:   programming,
	IntentStatus:        status,
	IntentGeneral:       general,
}

func lines(parts ...string) string { return strings.Join(parts, "\n") }

func timeGreeting(hour int) string {
	switch {
	case hour < 12:
		return "¡Buenos días"
	case hour < 19:
		return "¡Buenas tardes"
	default:
		return "¡Buenas noches"
	}
}

func greeting(p *profile, _ string) string {
	return lines(
		fmt.Sprintf("%s, %s! Soy %s, tu asistente de productividad. 👋", timeGreeting(p.hour()), p.name(), Name),
		"Puedo ayudarte con Excel, ortografía, cálculos rápidos, gestión del tiempo y consejos personalizados.",
		"¿En qué te ayudo hoy?",
	)
}

func farewell(p *profile, _ string) string {
	return fmt.Sprintf("¡Hasta luego, %s! 👋 Recuerda descansar y revisar tus logros del día. Aquí estaré cuando me necesites.", p.name())
}

func thanks(p *profile, _ string) string {
	return fmt.Sprintf("¡De nada, %s! 😊 Me alegra poder ayudarte. ¿Hay algo más en lo que pueda apoyarte?", p.name())
}

func personal(_ *profile, _ string) string {
	return lines(
		fmt.Sprintf("🤖 Soy %s, el Sistema de Asistencia y Recomendaciones Automatizadas.", Name),
		"Analizo tu actividad para darte consejos de productividad, bienestar y organización.",
		"También puedo resolver operaciones simples, como \"15 / 3\".",
	)
}

func arithmetic(_ *profile, message string) string {
	expr, ok := ParseExpression(message)
	if !ok {
		return "🧮 No pude identificar la operación. Prueba con algo como \"2 + 2\" o \"10 entre 5\"."
	}
	result, err := expr.Eval()
	if errors.Is(err, ErrDivisionByZero) {
		return fmt.Sprintf("⚠️ No puedo calcular %s: la división por cero no está definida.", expr)
	}
	if err != nil {
		return "🧮 Esa operación no está soportada todavía."
	}
	return fmt.Sprintf("🧮 El resultado es: %s = %s", expr, formatNumber(result))
}

func excel(_ *profile, _ string) string {
	return lines(
		"📊 Excel - Consejos profesionales:",
		"",
		"🔧 Atajos esenciales:",
		"• F2: Editar celda activa",
		"• Ctrl + Flecha: Ir al final de los datos",
		"• Ctrl + T: Convertir el rango en tabla",
		"",
		"📈 Fórmulas útiles:",
		"• Referencias absolutas con $: =SUMA($A$1:$A$10)",
		"• BUSCARV: =BUSCARV(valor, rango, columna, FALSO)",
		"• SI con condiciones: =SI(A1>10, \"Alto\", \"Bajo\")",
		"• CONTAR.SI para contar con condiciones",
		"",
		"¿Con qué fórmula específica necesitas ayuda?",
	)
}

var spellingNotes = []struct {
	word string
	note string
}{
	{"mas", "\"más\" lleva acento cuando indica cantidad (quiero más café); \"mas\" sin acento equivale a \"pero\"."},
	{"hoy", "\"hoy\" (este día) se escribe con h y termina en y."},
	{"vez", "\"vez\" se escribe con z; su plural es \"veces\"."},
	{"haber", "\"haber\" es verbo (puede haber cambios); \"a ver\" es mirar o comprobar."},
	{"echo", "\"hecho\" (de hacer) lleva h; \"echo\" es del verbo echar."},
}

func spelling(_ *profile, message string) string {
	lower := strings.ToLower(message)
	words := strings.Fields(lower)
	for _, n := range spellingNotes {
		for _, w := range words {
			if strings.Trim(w, "¿?¡!.,;:\"'") == n.word {
				return "✍️ Ortografía: " + n.note
			}
		}
	}
	return lines(
		"✍️ Reglas rápidas de ortografía:",
		"• Las palabras agudas llevan acento si terminan en vocal, n o s (canción, café).",
		"• Las graves llevan acento si NO terminan en vocal, n o s (árbol, lápiz).",
		"• Las esdrújulas siempre llevan acento (teléfono, rápido).",
		"",
		"Dime la palabra exacta y te digo cómo se escribe.",
	)
}

func troubleshooting(_ *profile, _ string) string {
	return lines(
		"🔧 Vamos a resolverlo paso a paso:",
		"1. Anota el mensaje de error exacto.",
		"2. Verifica si ocurre siempre o solo en ciertas condiciones.",
		"3. Reinicia la aplicación y revisa si hay actualizaciones pendientes.",
		"4. Si persiste, comparte el detalle con soporte técnico.",
		"",
		"¿Cuál es el problema específico que estás experimentando?",
	)
}

func help(p *profile, _ string) string {
	return lines(
		fmt.Sprintf("¡Hola %s! Soy tu asistente personal. ¿En qué puedo ayudarte hoy?", p.name()),
		"Estoy aquí para ayudarte con:",
		"• 💡 Consejos de productividad y mejores prácticas",
		"• 📊 Análisis de tu rendimiento laboral",
		"• 🔧 Soluciones para problemas técnicos",
		"• ⏰ Gestión del tiempo y organización",
		"• 🧮 Cálculos rápidos",
		"",
		"¿Qué tipo de ayuda necesitas específicamente?",
	)
}

func productivityLevel(score int) string {
	switch {
	case score >= 80:
		return "¡Excelente! Mantén ese ritmo."
	case score >= 60:
		return "Buen trabajo, pero puedes mejorar."
	default:
		return "Necesitas enfocarte más en tareas productivas."
	}
}

func productivity(p *profile, _ string) string {
	s := p.Score()
	if s == nil {
		return lines(
			"📊 No tengo suficientes datos de tu productividad aún.",
			"",
			"💡 Consejos generales:",
			"• Establece metas diarias claras",
			"• Usa la regla 80/20 (Pareto)",
			"• Evita el multitasking",
		)
	}
	return lines(
		fmt.Sprintf("📊 Tu productividad actual: %d/100 puntos", s.Score),
		fmt.Sprintf("🎯 Nivel: %s", productivityLevel(s.Score)),
		fmt.Sprintf("📈 Mejoras acumuladas: %d", s.Improvements),
		"",
		"💡 Consejos para mejorar:",
		"• Técnica Pomodoro: 25 min trabajo + 5 min descanso",
		"• Identifica y elimina distracciones",
		"• Toma descansos regulares cada 2 horas",
	)
}

func workloadState(minutes int) string {
	switch {
	case minutes > 480:
		return "⚠️ Has trabajado mucho hoy. Es hora de descansar."
	case minutes > 360:
		return "⏰ Llevas varias horas trabajando. Considera un descanso."
	case minutes > 240:
		return "📈 Buen ritmo de trabajo. ¡Sigue así!"
	default:
		return "🚀 ¡Empieza tu jornada productiva!"
	}
}

func timeManagement(p *profile, _ string) string {
	minutes := p.TodayMinutes()
	return lines(
		"⏱️ Gestión del tiempo:",
		"",
		fmt.Sprintf("📊 Tiempo estimado de trabajo hoy: %d minutos", minutes),
		fmt.Sprintf("🎯 Estado: %s", workloadState(minutes)),
		"",
		"💡 Estrategias:",
		"• Prioriza con la matriz Eisenhower",
		"• Agrupa tareas similares",
		"• Revisa tus logros al final del día",
	)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func tips(p *profile, _ string) string {
	recent := p.Advisories(3)
	if len(recent) == 0 {
		return lines(
			"💡 Consejos personalizados:",
			"• Establece metas SMART",
			"• Si algo toma menos de 2 minutos, hazlo ahora",
			"• Toma descansos cada 90 minutos",
			"",
			"¿Sobre qué área te gustaría consejos más específicos?",
		)
	}
	var b strings.Builder
	b.WriteString("💡 Consejos recientes de tu asistente:\n\n")
	for i, rec := range recent {
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(rec.Text, 100))
	}
	b.WriteString("\n🎯 ¿Quieres más detalles sobre alguno de estos consejos?")
	return b.String()
}

func documentation(_ *profile, _ string) string {
	return lines(
		"📚 Documentación:",
		"• Instala el agente de escritorio y deja que registre tu actividad.",
		"• Consulta tu panel para ver productividad, aplicaciones y puntaje.",
		"• Escríbeme en el chat para consejos o cálculos rápidos.",
	)
}

func configuration(_ *profile, _ string) string {
	return lines(
		"⚙️ Configuración:",
		"1. Instala el agente de escritorio en tu equipo.",
		"2. Inicia sesión con tu usuario de SARA.",
		"3. Verifica en el panel que tu actividad aparezca en unos minutos.",
	)
}

func reports(p *profile, _ string) string {
	s := p.Summary()
	out := []string{
		"📈 Resumen de las últimas 24 horas:",
		fmt.Sprintf("• Actividades registradas: %d", s.Total),
		fmt.Sprintf("• Productivas: %d | Improductivas: %d | Juegos: %d", s.Productive, s.Unproductive, s.Gaming),
		fmt.Sprintf("• Productividad: %.1f%%", s.Ratio*100),
	}
	if len(s.TopWindows) > 0 {
		out = append(out, "", "🖥️ Aplicaciones más usadas:")
		for _, w := range s.TopWindows {
			out = append(out, fmt.Sprintf("• %s (%d)", w.Label, w.Count))
		}
	}
	return lines(out...)
}

func team(_ *profile, _ string) string {
	return lines(
		"🤝 Trabajo en equipo:",
		"• Acuerda canales y horarios de comunicación.",
		"• Comparte avances breves y frecuentes.",
		"• Reconoce los logros de tus compañeros.",
	)
}

func health(p *profile, _ string) string {
	out := []string{
		"🧘 Bienestar:",
		"• Aplica la regla 20-20-20: cada 20 minutos mira a 20 pies durante 20 segundos.",
		"• Levántate y estírate cada hora.",
		"• Mantente hidratado.",
	}
	if p.TodayMinutes() > 360 {
		out = append(out, "", "⚠️ Hoy llevas una jornada larga. Prioriza un descanso.")
	}
	return lines(out...)
}

func goals(p *profile, _ string) string {
	out := []string{"🎯 Metas y progreso:"}
	if s := p.Score(); s != nil {
		out = append(out, fmt.Sprintf("• Puntaje actual: %d/100, mejoras acumuladas: %d", s.Score, s.Improvements))
	}
	return lines(append(out,
		"• Define 3 objetivos concretos para hoy.",
		"• Divide las metas grandes en tareas pequeñas.",
		"• Celebra cada logro.",
	)...)
}

func programming(_ *profile, _ string) string {
	return lines(
		"💻 Programación:",
		"• Escribe pruebas antes de corregir un bug.",
		"• Haz commits pequeños y descriptivos.",
		"• Usa el depurador en lugar de imprimir valores.",
	)
}

func status(p *profile, _ string) string {
	s := p.Summary()
	score := "sin datos"
	if sc := p.Score(); sc != nil {
		score = fmt.Sprintf("%d/100", sc.Score)
	}
	return lines(
		fmt.Sprintf("📋 Estado de %s:", p.name()),
		fmt.Sprintf("• Puntaje: %s", score),
		fmt.Sprintf("• Tiempo estimado hoy: %d minutos", p.TodayMinutes()),
		fmt.Sprintf("• Productividad 24 h: %.1f%%", s.Ratio*100),
	)
}

func general(p *profile, message string) string {
	if strings.HasSuffix(strings.TrimSpace(message), "?") {
		return fmt.Sprintf("🤔 Buena pregunta, %s. Puedo ayudarte con productividad, Excel, ortografía, tiempo y cálculos. ¿Puedes darme más detalles?", p.name())
	}
	return fmt.Sprintf("Entiendo, %s. Si necesitas consejos, un cálculo rápido o revisar tu productividad, solo pídemelo. 😊", p.name())
}
