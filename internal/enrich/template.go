package enrich

import (
	"strings"

	"horse.fit/newswire/internal/textnorm"
)

var categoryLeads = map[string]string{
	"politica":      "En el ámbito político, se informó lo siguiente:",
	"economia":      "En materia económica, se dio a conocer lo siguiente:",
	"deportes":      "En la actualidad deportiva, se reportó lo siguiente:",
	"policiales":    "Las autoridades dieron cuenta del siguiente hecho:",
	"internacional": "En el plano internacional, se reportó lo siguiente:",
	"tecnologia":    "En el sector tecnológico, se anunció lo siguiente:",
	"salud":         "En temas de salud, se informó lo siguiente:",
	"espectaculos":  "En el mundo del espectáculo, se conoció lo siguiente:",
}

const defaultLead = "Se reportó la siguiente noticia:"

// TemplateContent builds placeholder prose that always contains the title,
// keeping any existing snippet.
func TemplateContent(title, existing, category string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Noticia sin título"
	}

	lead, ok := categoryLeads[categoryKey(category)]
	if !ok {
		lead = defaultLead
	}

	var b strings.Builder
	b.WriteString(lead)
	b.WriteString(" ")
	b.WriteString(strings.TrimSuffix(title, "."))
	b.WriteString(".")
	if snippet := strings.TrimSpace(existing); snippet != "" {
		b.WriteString(" ")
		b.WriteString(snippet)
	}
	b.WriteString(" La información completa está disponible en la fuente original y será actualizada conforme se conozcan más detalles.")
	return b.String()
}

func categoryKey(category string) string {
	key := textnorm.Normalize(category)
	replacer := strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u")
	return replacer.Replace(key)
}
