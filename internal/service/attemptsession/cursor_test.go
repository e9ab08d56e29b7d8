package attemptsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/training-api/internal/domain/entity"
)

// cursorAssessment строит аттестацию из двух секций: 2 вопроса и 1 вопрос
func cursorAssessment() *entity.Assessment {
	return &entity.Assessment{
		ID:   "a1",
		Name: "Вводный инструктаж",
		Sections: []entity.Section{
			{
				ID:       "s1",
				Sequence: 1,
				Title:    "Теория",
				Questions: []entity.Question{
					{ID: "q1", SectionID: "s1", Type: entity.QuestionTypeSingleChoice},
					{ID: "q2", SectionID: "s1", Type: entity.QuestionTypeMultiChoice},
				},
			},
			{
				ID:       "s2",
				Sequence: 2,
				Title:    "Практика",
				Questions: []entity.Question{
					{ID: "q3", SectionID: "s2", Type: entity.QuestionTypeFreeText},
				},
			},
		},
	}
}

func TestCursor_NextWithinAndAcrossSections(t *testing.T) {
	// Arrange
	cursor := NewCursor(cursorAssessment())

	// Act & Assert: внутри секции
	assert.True(t, cursor.Next())
	si, qi := cursor.Position()
	assert.Equal(t, 0, si)
	assert.Equal(t, 1, qi)

	// Переход на первый вопрос следующей секции
	assert.True(t, cursor.Next())
	si, qi = cursor.Position()
	assert.Equal(t, 1, si)
	assert.Equal(t, 0, qi)

	// Последний вопрос последней секции — no-op
	assert.False(t, cursor.Next(), "Next на последнем вопросе должен быть no-op")
	si, qi = cursor.Position()
	assert.Equal(t, 1, si)
	assert.Equal(t, 0, qi)
}

func TestCursor_PreviousWithinAndAcrossSections(t *testing.T) {
	// Arrange: встаем на первый вопрос второй секции
	cursor := NewCursor(cursorAssessment())
	cursor.JumpTo(1, 0)

	// Act & Assert: назад — на последний вопрос предыдущей секции
	assert.True(t, cursor.Previous())
	si, qi := cursor.Position()
	assert.Equal(t, 0, si)
	assert.Equal(t, 1, qi)

	assert.True(t, cursor.Previous())
	si, qi = cursor.Position()
	assert.Equal(t, 0, si)
	assert.Equal(t, 0, qi)

	// В позиции (0,0) — no-op
	assert.False(t, cursor.Previous(), "Previous в (0,0) должен быть no-op")
	si, qi = cursor.Position()
	assert.Equal(t, 0, si)
	assert.Equal(t, 0, qi)
}

func TestCursor_JumpToClampsOutOfRange(t *testing.T) {
	// Arrange
	cursor := NewCursor(cursorAssessment())

	// Act: индексы за границами — прижимаемся, не паникуем
	cursor.JumpTo(5, 9)

	// Assert
	si, qi := cursor.Position()
	assert.Equal(t, 1, si)
	assert.Equal(t, 0, qi)

	cursor.JumpTo(-3, -1)
	si, qi = cursor.Position()
	assert.Equal(t, 0, si)
	assert.Equal(t, 0, qi)
}

func TestCursor_Current(t *testing.T) {
	// Arrange
	cursor := NewCursor(cursorAssessment())

	// Act & Assert
	question := cursor.Current()
	require.NotNil(t, question)
	assert.Equal(t, "q1", question.ID)

	cursor.JumpTo(1, 0)
	question = cursor.Current()
	require.NotNil(t, question)
	assert.Equal(t, "q3", question.ID)
}

func TestCursor_EmptyAssessment(t *testing.T) {
	// Arrange: аттестация без секций
	cursor := NewCursor(&entity.Assessment{ID: "a2"})

	// Act & Assert: все операции — безопасные no-op
	assert.False(t, cursor.Next())
	assert.False(t, cursor.Previous())
	cursor.JumpTo(1, 1)
	si, qi := cursor.Position()
	assert.Equal(t, 0, si)
	assert.Equal(t, 0, qi)
	assert.Nil(t, cursor.Current())
}
