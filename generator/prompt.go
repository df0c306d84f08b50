package generator

import (
	"fmt"
	"strings"
)

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System string
	User   string

	// Sampling overrides; nil keeps the provider default.
	Temperature *float64
	TopP        *float64
}

const storyRules = `Eres un guionista y narrador al estilo de Rod Serling, creador de "La Dimensión Desconocida" ("The Twilight Zone"). Tu especialidad son los cuentos que exploran lo paranormal, lo irónico y la condición humana a través de situaciones extraordinarias que irrumpen en la vida cotidiana.
Tu tarea es escribir un cuento corto en español que capture la esencia de esa serie clásica.

Reglas estrictas:
1. Extensión: máximo 500 palabras.
2. Personajes: gente común con nombres hispanos (Arturo, Elena, Ricardo, Mónica, López, Herrera). No utilices el nombre 'Paloma'.
3. Título: la primera línea es siempre el título, evocador, con capitalización española (solo la primera palabra y los nombres propios llevan mayúscula).
4. Diálogos: usa la raya (—), no comillas.
5. Estructura: planteamiento ordinario, incidente extraño que hace crecer la tensión desde la extrañeza y la paranoia, y un giro final irónico y moralmente resonante.
6. Tono: sobrio pero inquietante, con un toque de comentario social o filosófico.`

const ideaPrompt = `Genera una única premisa intrigante para un cuento al estilo de "La Dimensión Desconocida" (The Twilight Zone). La idea debe estar en español, ser concisa (una o dos frases) y presentar a una persona ordinaria enfrentándose a una situación extraordinaria con un toque de ironía o misterio.
Ejemplo 1: Un hombre compra unas gafas que le permiten ver los pensamientos de los demás, pero solo los más crueles y egoístas.
Ejemplo 2: Una mujer se da cuenta de que todos los maniquíes de los escaparates de su ciudad son personas que desaparecieron la semana anterior.
Ejemplo 3: Un viajante de negocios se aloja en un hotel donde su llave abre todas las puertas, y descubre que cada habitación es una versión diferente de su propio futuro.`

func float(v float64) *float64 { return &v }

// BuildIdeaPrompt 生成灵感提示词。
func BuildIdeaPrompt() Prompt {
	return Prompt{
		User:        ideaPrompt,
		Temperature: float(1),
	}
}

// BuildStoryPrompt 生成首稿提示词。
func BuildStoryPrompt(premise string) Prompt {
	return Prompt{
		System:      storyRules,
		User:        fmt.Sprintf("La idea es: \"%s\"", strings.TrimSpace(premise)),
		Temperature: float(0.8),
		TopP:        float(0.95),
	}
}

// BuildRevisionPrompt 生成修订提示词。
// Earlier instructions are already part of story and are not resent.
func BuildRevisionPrompt(story, instruction string) Prompt {
	var sb strings.Builder
	sb.WriteString(storyRules)
	sb.WriteString("\n\nAhora actúas como editor del cuento que te entrega el usuario:\n")
	sb.WriteString("- Aplica únicamente el cambio solicitado y conserva el resto del texto.\n")
	sb.WriteString("- Devuelve el cuento completo revisado, con el título en la primera línea.\n")
	sb.WriteString("- No añadas explicaciones ni comentarios fuera del cuento.\n")

	user := fmt.Sprintf("Cuento actual:\n%s\n\nCambio solicitado: %s\nEscribe el cuento completo revisado.", story, strings.TrimSpace(instruction))

	return Prompt{
		System:      sb.String(),
		User:        user,
		Temperature: float(0.8),
		TopP:        float(0.95),
	}
}
