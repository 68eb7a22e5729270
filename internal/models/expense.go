package models

import "time"

// User represents a user account. A user owns its expenses; deleting a
// user deletes every expense it owns.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expense represents a single expense record. An expense with a due date
// is a debt; there is no separate debt entity.
type Expense struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Amount    float64    `json:"amount"`
	Category  string     `json:"category"`
	Date      time.Time  `json:"date"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Element   string     `json:"element,omitempty"`
	Comment   string     `json:"comment,omitempty"`
	UserID    int64      `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// Session represents a user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsDebt reports whether the expense is a debt, i.e. has a due date set.
func (e *Expense) IsDebt() bool {
	return e.DueDate != nil
}

// IsOverdue reports whether the expense is a debt whose due date is
// strictly before the current date. Comparison is at day precision.
func (e *Expense) IsOverdue(now time.Time) bool {
	if !e.IsDebt() {
		return false
	}
	return truncateToDay(*e.DueDate).Before(truncateToDay(now))
}

// DaysUntilDue returns the signed number of whole days between the current
// date and the due date, negative when overdue. The second return value is
// false when the expense is not a debt.
func (e *Expense) DaysUntilDue(now time.Time) (int, bool) {
	if !e.IsDebt() {
		return 0, false
	}
	days := int(truncateToDay(*e.DueDate).Sub(truncateToDay(now)).Hours() / 24)
	return days, true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
