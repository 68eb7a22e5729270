package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"debttrack/internal/models"
	"debttrack/internal/storage"
)

// errValidation marks malformed or missing form input. The user is re-shown
// the form; nothing is written.
type errValidation struct{ msg string }

func (e errValidation) Error() string { return e.msg }

// ExpenseFormViewModel is the data passed to the create/edit form template.
type ExpenseFormViewModel struct {
	Page
	IsEdit    bool
	Error     string
	ExpenseID int64
	Name      string
	Amount    string
	Category  string
	Date      string
	DueDate   string
	Element   string
	Comment   string
}

func formViewModel(e *models.Expense) ExpenseFormViewModel {
	vm := ExpenseFormViewModel{
		IsEdit:    true,
		ExpenseID: e.ID,
		Name:      e.Name,
		Amount:    trimMoney(e.Amount),
		Category:  e.Category,
		Date:      e.Date.Format("2006-01-02"),
		Element:   e.Element,
		Comment:   e.Comment,
	}
	if e.DueDate != nil {
		vm.DueDate = e.DueDate.Format("2006-01-02")
	}
	return vm
}

// ListViewModel is the data passed to the expense list template.
type ListViewModel struct {
	Page
	Expenses []ExpenseItem
	Total    float64
}

// ExpenseItem decorates an expense with its derived debt state for rendering.
type ExpenseItem struct {
	models.Expense
	Overdue      bool
	DaysUntilDue int
}

func expenseItems(expenses []models.Expense, now time.Time) []ExpenseItem {
	items := make([]ExpenseItem, 0, len(expenses))
	for _, e := range expenses {
		days, _ := e.DaysUntilDue(now)
		items = append(items, ExpenseItem{
			Expense:      e,
			Overdue:      e.IsOverdue(now),
			DaysUntilDue: days,
		})
	}
	return items
}

// ListExpenses renders all of the user's expenses, newest first, with their sum.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	expenses, err := h.db.ListExpenses(user.ID)
	if err != nil {
		h.serverError(w, r, "list expenses", err)
		return
	}
	total, err := h.db.SumExpenses(user.ID)
	if err != nil {
		h.serverError(w, r, "sum expenses", err)
		return
	}

	h.render(w, r, "expenses.html", ListViewModel{
		Page:     h.page(w, r),
		Expenses: expenseItems(expenses, time.Now()),
		Total:    total,
	})
}

// NewExpenseForm renders the form to create a new expense.
func (h *Handlers) NewExpenseForm(w http.ResponseWriter, r *http.Request) {
	vm := ExpenseFormViewModel{Page: h.page(w, r)}
	vm.Date = time.Now().Format("2006-01-02")
	h.render(w, r, "expense_form.html", vm)
}

// CreateExpense handles the creation of a new expense.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	expense, err := parseExpenseForm(r)
	if err != nil {
		var ve errValidation
		if errors.As(err, &ve) {
			vm := formFromRequest(r)
			vm.Page = h.page(w, r)
			vm.Error = ve.msg
			h.render(w, r, "expense_form.html", vm)
			return
		}
		h.serverError(w, r, "parse expense form", err)
		return
	}

	expense.UserID = user.ID
	if err := h.db.CreateExpense(expense); err != nil {
		h.serverError(w, r, "create expense", err)
		return
	}

	h.setFlash(w, "success", "Expense created successfully!")
	http.Redirect(w, r, "/", http.StatusFound)
}

// EditExpenseForm renders the form to edit an existing expense.
func (h *Handlers) EditExpenseForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	expense := h.loadOwnedExpense(w, r, user)
	if expense == nil {
		return
	}

	vm := formViewModel(expense)
	vm.Page = h.page(w, r)
	h.render(w, r, "expense_form.html", vm)
}

// UpdateExpense handles the edit form submission. Every field is replaced.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	expense := h.loadOwnedExpense(w, r, user)
	if expense == nil {
		return
	}

	updated, err := parseExpenseForm(r)
	if err != nil {
		var ve errValidation
		if errors.As(err, &ve) {
			vm := formFromRequest(r)
			vm.Page = h.page(w, r)
			vm.IsEdit = true
			vm.ExpenseID = expense.ID
			vm.Error = ve.msg
			h.render(w, r, "expense_form.html", vm)
			return
		}
		h.serverError(w, r, "parse expense form", err)
		return
	}

	// Identity and ownership never change on edit.
	updated.ID = expense.ID
	updated.UserID = expense.UserID

	if err := h.db.UpdateExpense(updated); err != nil {
		h.serverError(w, r, "update expense", err)
		return
	}

	h.setFlash(w, "success", "Expense updated successfully!")
	http.Redirect(w, r, "/expenses", http.StatusFound)
}

// DeleteExpense removes an expense owned by the requesting user.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	expense := h.loadOwnedExpense(w, r, user)
	if expense == nil {
		return
	}

	if err := h.db.DeleteExpense(expense.ID, user.ID); err != nil {
		h.serverError(w, r, "delete expense", err)
		return
	}

	h.setFlash(w, "success", "Expense deleted successfully")
	http.Redirect(w, r, "/expenses", http.StatusFound)
}

// loadOwnedExpense resolves the {id} path value to an expense owned by user.
// On failure it has already written the response (404 for an unknown id,
// redirect with a flash for someone else's row) and returns nil.
func (h *Handlers) loadOwnedExpense(w http.ResponseWriter, r *http.Request, user *models.User) *models.Expense {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil
	}

	expense, err := h.db.GetExpense(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
		} else {
			h.serverError(w, r, "get expense", err)
		}
		return nil
	}

	if expense.UserID != user.ID {
		h.setFlash(w, "danger", "You don't have permission to modify this expense")
		http.Redirect(w, r, "/expenses", http.StatusFound)
		return nil
	}
	return expense
}

// parseExpenseForm validates the expense form. Name, amount, category and
// date are required; a parseable due date turns the expense into a debt.
func parseExpenseForm(r *http.Request) (*models.Expense, error) {
	if err := r.ParseForm(); err != nil {
		return nil, errValidation{"Invalid form submission"}
	}

	name := strings.TrimSpace(r.FormValue("name"))
	amountStr := strings.TrimSpace(r.FormValue("amount"))
	category := strings.TrimSpace(r.FormValue("category"))
	dateStr := strings.TrimSpace(r.FormValue("date"))

	if name == "" || amountStr == "" || category == "" || dateStr == "" {
		return nil, errValidation{"Please fill in all required fields"}
	}

	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return nil, errValidation{"Invalid amount. Please check your inputs."}
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, errValidation{"Invalid date format. Please check your inputs."}
	}

	expense := &models.Expense{
		Name:     name,
		Amount:   amount,
		Category: category,
		Date:     date,
		Element:  strings.TrimSpace(r.FormValue("element")),
		Comment:  strings.TrimSpace(r.FormValue("comment")),
	}

	if dueDateStr := strings.TrimSpace(r.FormValue("due_date")); dueDateStr != "" {
		dueDate, err := time.Parse("2006-01-02", dueDateStr)
		if err != nil {
			return nil, errValidation{"Invalid due date format. Please check your inputs."}
		}
		expense.DueDate = &dueDate
	}

	return expense, nil
}

// formFromRequest echoes the submitted values back into the form so the user
// does not lose input on a validation failure.
func formFromRequest(r *http.Request) ExpenseFormViewModel {
	return ExpenseFormViewModel{
		Name:     r.FormValue("name"),
		Amount:   r.FormValue("amount"),
		Category: r.FormValue("category"),
		Date:     r.FormValue("date"),
		DueDate:  r.FormValue("due_date"),
		Element:  r.FormValue("element"),
		Comment:  r.FormValue("comment"),
	}
}
