package attemptsession

import "github.com/yourusername/training-api/internal/domain/entity"

// Cursor отслеживает текущую позицию (секция, вопрос) в двухуровневой
// структуре аттестации. Чисто позиционная структура: запреты после истечения
// времени обеспечивает Session, а не курсор.
type Cursor struct {
	assessment    *entity.Assessment
	sectionIndex  int
	questionIndex int
}

// NewCursor создает курсор в позиции (0,0)
func NewCursor(assessment *entity.Assessment) *Cursor {
	return &Cursor{assessment: assessment}
}

// Position возвращает текущие индексы секции и вопроса
func (c *Cursor) Position() (int, int) {
	return c.sectionIndex, c.questionIndex
}

// Current возвращает вопрос в текущей позиции (nil для пустой аттестации)
func (c *Cursor) Current() *entity.Question {
	if c.assessment == nil || c.sectionIndex >= len(c.assessment.Sections) {
		return nil
	}
	section := &c.assessment.Sections[c.sectionIndex]
	if c.questionIndex >= len(section.Questions) {
		return nil
	}
	return &section.Questions[c.questionIndex]
}

// Next переходит к следующему вопросу секции, либо к первому вопросу
// следующей секции. На последнем вопросе последней секции — no-op.
// Возвращает true, если позиция изменилась.
func (c *Cursor) Next() bool {
	if c.assessment == nil {
		return false
	}
	if c.questionIndex < c.questionCount(c.sectionIndex)-1 {
		c.questionIndex++
		return true
	}
	if c.sectionIndex < len(c.assessment.Sections)-1 {
		c.sectionIndex++
		c.questionIndex = 0
		return true
	}
	return false
}

// Previous переходит к предыдущему вопросу секции, либо к последнему вопросу
// предыдущей секции. В позиции (0,0) — no-op.
// Возвращает true, если позиция изменилась.
func (c *Cursor) Previous() bool {
	if c.assessment == nil {
		return false
	}
	if c.questionIndex > 0 {
		c.questionIndex--
		return true
	}
	if c.sectionIndex > 0 {
		c.sectionIndex--
		c.questionIndex = c.questionCount(c.sectionIndex) - 1
		if c.questionIndex < 0 {
			c.questionIndex = 0
		}
		return true
	}
	return false
}

// JumpTo выполняет абсолютное позиционирование. Вызывающая сторона (сайдбар
// навигации) строит индексы из той же структуры аттестации и считается
// доверенной; при выходе за границы курсор прижимается к ближайшей
// допустимой позиции вместо паники.
func (c *Cursor) JumpTo(sectionIndex, questionIndex int) {
	if c.assessment == nil || len(c.assessment.Sections) == 0 {
		c.sectionIndex, c.questionIndex = 0, 0
		return
	}
	c.sectionIndex = clamp(sectionIndex, 0, len(c.assessment.Sections)-1)
	maxQuestion := c.questionCount(c.sectionIndex) - 1
	if maxQuestion < 0 {
		maxQuestion = 0
	}
	c.questionIndex = clamp(questionIndex, 0, maxQuestion)
}

func (c *Cursor) questionCount(sectionIndex int) int {
	if sectionIndex >= len(c.assessment.Sections) {
		return 0
	}
	return len(c.assessment.Sections[sectionIndex].Questions)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
