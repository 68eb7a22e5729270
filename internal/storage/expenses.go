package storage

import (
	"database/sql"
	"errors"
	"time"

	"debttrack/internal/models"
)

const expenseColumns = "id, name, amount, category, date, due_date, element, comment, user_id, created_at"

// CreateExpense inserts a new expense owned by e.UserID and sets e.ID.
func (db *DB) CreateExpense(e *models.Expense) error {
	return db.withTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(
			"INSERT INTO expenses (name, amount, category, date, due_date, element, comment, user_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			e.Name, e.Amount, e.Category, e.Date, nullTime(e.DueDate), nullString(e.Element), nullString(e.Comment), e.UserID,
		)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		e.ID = id
		return nil
	})
}

// GetExpense retrieves a single expense by ID.
func (db *DB) GetExpense(id int64) (*models.Expense, error) {
	row := db.conn.QueryRow(
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?",
		id,
	)

	e, err := scanExpense(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// UpdateExpense replaces every mutable field of an expense. The update is
// scoped to e.UserID; ownership never changes and a row owned by another
// user is reported as ErrNotFound.
func (db *DB) UpdateExpense(e *models.Expense) error {
	return db.withTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(
			"UPDATE expenses SET name = ?, amount = ?, category = ?, date = ?, due_date = ?, element = ?, comment = ? WHERE id = ? AND user_id = ?",
			e.Name, e.Amount, e.Category, e.Date, nullTime(e.DueDate), nullString(e.Element), nullString(e.Comment), e.ID, e.UserID,
		)
		if err != nil {
			return err
		}
		return requireRow(result)
	})
}

// DeleteExpense removes an expense owned by userID.
func (db *DB) DeleteExpense(id, userID int64) error {
	return db.withTx(func(tx *sql.Tx) error {
		result, err := tx.Exec("DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID)
		if err != nil {
			return err
		}
		return requireRow(result)
	})
}

// ListExpenses retrieves all expenses for a user ordered by date descending.
func (db *DB) ListExpenses(userID int64) ([]models.Expense, error) {
	return db.queryExpenses(
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC",
		userID,
	)
}

// SumExpenses returns the total amount across all of a user's expenses.
func (db *DB) SumExpenses(userID int64) (float64, error) {
	var total float64
	err := db.conn.QueryRow(
		"SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE user_id = ?",
		userID,
	).Scan(&total)
	return total, err
}

// ListDebts retrieves a user's debts (expenses with a due date) ordered by
// due date ascending.
func (db *DB) ListDebts(userID int64) ([]models.Expense, error) {
	return db.queryExpenses(
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? AND due_date IS NOT NULL ORDER BY due_date ASC, id ASC",
		userID,
	)
}

// OverdueStats returns the count and amount sum of a user's debts whose due
// date is strictly before today.
func (db *DB) OverdueStats(userID int64, today time.Time) (int, float64, error) {
	var count int
	var total float64
	err := db.conn.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM expenses WHERE user_id = ? AND due_date IS NOT NULL AND due_date < ?",
		userID, startOfDay(today),
	).Scan(&count, &total)
	return count, total, err
}

// DashboardStats holds the aggregate figures shown on the dashboard.
type DashboardStats struct {
	TotalExpenses float64
	TotalDebts    float64
	ExpenseCount  int
	DebtCount     int
}

// GetDashboardStats computes sums and counts over a user's expenses and debts.
func (db *DB) GetDashboardStats(userID int64) (*DashboardStats, error) {
	var s DashboardStats
	err := db.conn.QueryRow(`
		SELECT
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(CASE WHEN due_date IS NOT NULL THEN amount ELSE 0 END), 0),
			COUNT(*),
			COUNT(due_date)
		FROM expenses WHERE user_id = ?
	`, userID).Scan(&s.TotalExpenses, &s.TotalDebts, &s.ExpenseCount, &s.DebtCount)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RecentExpenses returns a user's most recently created expenses.
func (db *DB) RecentExpenses(userID int64, limit int) ([]models.Expense, error) {
	return db.queryExpenses(
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?",
		userID, limit,
	)
}

// UpcomingDebts returns a user's soonest-due debts that are not yet overdue.
func (db *DB) UpcomingDebts(userID int64, today time.Time, limit int) ([]models.Expense, error) {
	return db.queryExpenses(
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? AND due_date IS NOT NULL AND due_date >= ? ORDER BY due_date ASC, id ASC LIMIT ?",
		userID, startOfDay(today), limit,
	)
}

// CategoryTotal holds the amount sum and row count for one category.
type CategoryTotal struct {
	Category string
	Total    float64
	Count    int
}

// GetCategoryTotals groups a user's expenses by category.
func (db *DB) GetCategoryTotals(userID int64) ([]CategoryTotal, error) {
	rows, err := db.conn.Query(
		"SELECT category, SUM(amount), COUNT(*) FROM expenses WHERE user_id = ? GROUP BY category ORDER BY SUM(amount) DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total, &ct.Count); err != nil {
			return nil, err
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// MonthTotal holds the amount sum for one calendar month (YYYY-MM).
type MonthTotal struct {
	Month string
	Total float64
}

// GetMonthlyTotals groups a user's expenses by calendar month of the
// transaction date, ordered chronologically.
func (db *DB) GetMonthlyTotals(userID int64) ([]MonthTotal, error) {
	rows, err := db.conn.Query(
		"SELECT substr(date, 1, 7) AS month, SUM(amount) FROM expenses WHERE user_id = ? GROUP BY month ORDER BY month",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []MonthTotal
	for rows.Next() {
		var mt MonthTotal
		if err := rows.Scan(&mt.Month, &mt.Total); err != nil {
			return nil, err
		}
		totals = append(totals, mt)
	}
	return totals, rows.Err()
}

func (db *DB) queryExpenses(query string, args ...any) ([]models.Expense, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func scanExpense(scan func(...any) error) (*models.Expense, error) {
	var e models.Expense
	var dueDate sql.NullTime
	var element, comment sql.NullString
	if err := scan(&e.ID, &e.Name, &e.Amount, &e.Category, &e.Date, &dueDate, &element, &comment, &e.UserID, &e.CreatedAt); err != nil {
		return nil, err
	}
	if dueDate.Valid {
		d := dueDate.Time
		e.DueDate = &d
	}
	e.Element = element.String
	e.Comment = comment.String
	return &e, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
