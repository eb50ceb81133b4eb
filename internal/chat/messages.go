package chat

// Fixed user-facing strings. The UI is Russian end to end; wording here is
// deliberately constant so tests and the transcript stay stable.
const (
	msgGreeting = "Привет! Я MathBot, твой AI-помощник по математике. Чем могу помочь сегодня?"

	// Appended when the model transport fails mid-turn. The partial text of
	// the turn is replaced by this, never left dangling.
	msgAIError = "Произошла ошибка при обращении к AI. Пожалуйста, попробуйте еще раз."

	// Placeholder while an illustration request is in flight.
	msgDrawing = "Рисую: *%s*"

	msgIllustrationFailed = "Не удалось создать иллюстрацию."

	// Tool-resolution misses are normal outcomes, phrased so the model (and
	// the user) asks for clarification instead of treating them as faults.
	msgTaskNotFoundChapter = "Задача с ID или номером %q не найдена в текущей главе. Попроси пользователя уточнить номер."
	msgTaskNotFoundSection = "Задача №%s в разделе %q не найдена. Попроси пользователя уточнить номер."

	msgChapterSwitched   = "Отлично! Мы работаем с главой %q из книги %q. Спрашивай, если что-то непонятно!"
	msgChapterLoadFailed = "К сожалению, не удалось загрузить задачи для главы %q. Попробуйте выбрать другую."

	msgProblemTitle  = "Задача №%d"
	msgSolutionTitle = "Решение задачи №%d"
)
