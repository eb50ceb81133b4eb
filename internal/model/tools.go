package model

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/zadachnik/mathbot/internal/corpus"
)

// Tool names declared to the model.
const (
	ToolGenerateIllustration = "generate_illustration"
	ToolShowProblem          = "show_problem"
	ToolShowSolution         = "show_solution"
)

// Declarations returns the three tool declarations for the given addressing
// scheme. The identifier parameters differ: hierarchical tasks are addressed
// by (bookTitle, chapterTitle, taskId), flat tasks by (section, number).
func Declarations(scheme corpus.Scheme) []*genai.FunctionDeclaration {
	illustration := &genai.FunctionDeclaration{
		Name: ToolGenerateIllustration,
		Description: "Создаёт простую иллюстрацию для объяснения математической концепции или задачи. " +
			"Используй это, когда картинка может помочь пониманию.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"description": {
					Type: genai.TypeString,
					Description: "Подробное описание того, что нужно нарисовать. Например: " +
						"\"простой рисунок пиццы, разделенной на 8 равных частей, с 3 закрашенными частями, " +
						"чтобы показать дробь 3/8\".",
				},
			},
			Required: []string{"description"},
		},
	}

	if scheme == corpus.SchemeFlat {
		identifiers := &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"section": {
					Type:        genai.TypeString,
					Description: "Название раздела или его часть, например \"Делимость\".",
				},
				"number": {
					Type:        genai.TypeNumber,
					Description: "Номер задачи внутри раздела, например 7.",
				},
			},
			Required: []string{"section", "number"},
		}
		return []*genai.FunctionDeclaration{
			illustration,
			{
				Name:        ToolShowProblem,
				Description: "Показывает текст задачи из библиотеки по названию раздела и номеру.",
				Parameters:  identifiers,
			},
			{
				Name:        ToolShowSolution,
				Description: "Показывает текст решения задачи из библиотеки по названию раздела и номеру.",
				Parameters:  identifiers,
			},
		}
	}

	identifiers := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"bookTitle": {
				Type:        genai.TypeString,
				Description: "Название книги, например \"Задачник «Кванта»\".",
			},
			"chapterTitle": {
				Type:        genai.TypeString,
				Description: "Название главы, например \"1970\".",
			},
			"taskId": {
				Type:        genai.TypeString,
				Description: "Идентификатор задачи, например \"kvant_1970_1\", или её номер.",
			},
		},
		Required: []string{"bookTitle", "chapterTitle", "taskId"},
	}
	return []*genai.FunctionDeclaration{
		illustration,
		{
			Name:        ToolShowProblem,
			Description: "Показывает текст задачи из библиотеки по названию книги, главы и ID задачи.",
			Parameters:  identifiers,
		},
		{
			Name:        ToolShowSolution,
			Description: "Показывает текст решения задачи из библиотеки по названию книги, главы и ID задачи.",
			Parameters:  identifiers,
		},
	}
}

// systemInstruction builds the session system context: who the assistant is,
// what is available for navigation, and (optionally) one pinned chapter's
// full task set.
func systemInstruction(sc SessionContext) string {
	var b strings.Builder

	b.WriteString("Ты — MathBot, дружелюбный AI-помощник по математике для школьников. ")
	b.WriteString("Отвечай по-русски, объясняй понятно и по шагам, используй Markdown и LaTeX для формул.\n\n")

	b.WriteString("У тебя есть инструменты:\n")
	b.WriteString("- " + ToolShowProblem + " — показать текст задачи из библиотеки;\n")
	b.WriteString("- " + ToolShowSolution + " — показать решение задачи из библиотеки;\n")
	b.WriteString("- " + ToolGenerateIllustration + " — нарисовать простую иллюстрацию к объяснению.\n")
	b.WriteString("Когда пользователь просит показать задачу или решение, вызывай инструмент, " +
		"а не пересказывай текст по памяти.\n\n")

	if len(sc.BookTitles) > 0 {
		b.WriteString("Доступные книги:\n")
		for _, title := range sc.BookTitles {
			fmt.Fprintf(&b, "- %s\n", title)
		}
		b.WriteString("\n")
	}
	if len(sc.SectionKeys) > 0 {
		b.WriteString("Доступные разделы:\n")
		for _, key := range sc.SectionKeys {
			fmt.Fprintf(&b, "- %s\n", key)
		}
		b.WriteString("\n")
	}

	if p := sc.Pinned; p != nil {
		fmt.Fprintf(&b, "Сейчас выбрана глава %q из книги %q. Задачи этой главы:\n\n", p.ChapterTitle, p.BookTitle)
		for _, t := range p.Tasks {
			fmt.Fprintf(&b, "Задача №%d (id: %s):\n%s\n\n", t.Number, t.ID, t.Problem)
		}
		b.WriteString("Отвечая на вопросы по этим задачам, можешь опираться на их текст напрямую.\n")
	}

	return b.String()
}
