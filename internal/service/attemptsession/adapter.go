package attemptsession

import "github.com/yourusername/training-api/internal/domain/entity"

// Адаптер серверной формы ответа к внутренней.
//
// Сервер возвращает ранее сохраненные ответы с выбранными вариантами как
// объектами (entity.Choice), внутреннее хранилище работает с набором
// идентификаторов. Формы не взаимозаменяемы, поэтому преобразование —
// обязательная явная граница, а не inline-сахар по месту вызова.

// AnswerFromAttempt преобразует сохраненный серверный ответ во внутренний
func AnswerFromAttempt(stored *entity.AttemptAnswer) Answer {
	answer := Answer{
		QuestionID: stored.QuestionID,
		Text:       stored.TextResponse,
	}
	if len(stored.SelectedChoices) > 0 {
		answer.SelectedChoiceIDs = make([]string, 0, len(stored.SelectedChoices))
		for i := range stored.SelectedChoices {
			answer.SelectedChoiceIDs = append(answer.SelectedChoiceIDs, stored.SelectedChoices[i].ID)
		}
	}
	return answer
}

// SeedAnswers преобразует все ответы возобновляемой попытки и наполняет ими
// новое хранилище. Неполные серверные записи (обе ветви пусты) не отбрасываются:
// хранилище честно отражает то, что вернул сервер, а фильтрация полноты
// происходит при сохранении и отправке.
func SeedAnswers(stored []entity.AttemptAnswer) *AnswerStore {
	store := NewAnswerStore()
	for i := range stored {
		answer := AnswerFromAttempt(&stored[i])
		store.Set(answer.QuestionID, answer)
	}
	return store
}
