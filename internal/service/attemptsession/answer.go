package attemptsession

import (
	"sort"
	"strings"
)

// Answer представляет текущий локальный ответ на вопрос.
// Для вопросов с вариантами значим SelectedChoiceIDs, для текстовых — Text;
// ровно одна из двух ветвей осмысленна, вторая остается пустой.
type Answer struct {
	QuestionID        string   `json:"question_id"`
	SelectedChoiceIDs []string `json:"selected_choice_ids,omitempty"`
	Text              string   `json:"text,omitempty"`
}

// IsComplete проверяет полноту ответа. Оценка структурная — по форме самого
// ответа, без обращения к вопросу: хранилищу ответов вопрос может быть
// недоступен в момент оценки.
// Текстовая ветвь полна при непустом (после trim) тексте,
// ветвь с вариантами — при непустом наборе выбранных вариантов.
func (a Answer) IsComplete() bool {
	if strings.TrimSpace(a.Text) != "" {
		return true
	}
	return len(a.SelectedChoiceIDs) > 0
}

// AnswerStore — хранилище локальных ответов в памяти, источник истины для
// введенного слушателем. Не синхронизировано само по себе: все обращения
// идут через Session, которая обеспечивает дисциплину одного писателя.
// Хранилище никогда не обращается к сети.
type AnswerStore struct {
	answers map[string]Answer
}

// NewAnswerStore создает пустое хранилище ответов
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{
		answers: make(map[string]Answer),
	}
}

// Set полностью заменяет ответ на вопрос (replace, не merge)
func (s *AnswerStore) Set(questionID string, answer Answer) {
	answer.QuestionID = questionID
	s.answers[questionID] = answer
}

// Get возвращает текущий ответ на вопрос
func (s *AnswerStore) Get(questionID string) (Answer, bool) {
	a, ok := s.answers[questionID]
	return a, ok
}

// All возвращает копию всего отображения вопрос → ответ
func (s *AnswerStore) All() map[string]Answer {
	out := make(map[string]Answer, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// AnsweredForProgress возвращает число затронутых вопросов (размер отображения).
// Это НЕ то же самое, что число полных ответов: тронутый, но оставленный
// неполным ответ сюда входит, а в Complete() — нет.
func (s *AnswerStore) AnsweredForProgress() int {
	return len(s.answers)
}

// Complete возвращает подмножество полных ответов, отсортированное по
// идентификатору вопроса. Только эти ответы пригодны для сохранения.
// Детерминированный порядок упрощает идемпотентную повторную отправку.
func (s *AnswerStore) Complete() []Answer {
	out := make([]Answer, 0, len(s.answers))
	for _, a := range s.answers {
		if a.IsComplete() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QuestionID < out[j].QuestionID
	})
	return out
}

// CompleteCount возвращает число полных ответов
func (s *AnswerStore) CompleteCount() int {
	count := 0
	for _, a := range s.answers {
		if a.IsComplete() {
			count++
		}
	}
	return count
}

// HasComplete проверяет, есть ли полный ответ на вопрос
func (s *AnswerStore) HasComplete(questionID string) bool {
	a, ok := s.answers[questionID]
	return ok && a.IsComplete()
}
