package handlers

import (
	"net/http"
	"time"

	"debttrack/internal/storage"
)

// DashboardViewModel is the data passed to the dashboard template.
type DashboardViewModel struct {
	Page
	TotalExpenses float64
	TotalDebts    float64
	ExpenseCount  int
	DebtCount     int
	Recent        []ExpenseItem
	Upcoming      []ExpenseItem
}

// Dashboard renders the main dashboard with aggregate statistics, the five
// most recently created expenses and the three soonest upcoming debts.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	now := time.Now()

	stats, err := h.db.GetDashboardStats(user.ID)
	if err != nil {
		h.serverError(w, r, "dashboard stats", err)
		return
	}
	recent, err := h.db.RecentExpenses(user.ID, 5)
	if err != nil {
		h.serverError(w, r, "recent expenses", err)
		return
	}
	upcoming, err := h.db.UpcomingDebts(user.ID, now, 3)
	if err != nil {
		h.serverError(w, r, "upcoming debts", err)
		return
	}

	h.render(w, r, "index.html", DashboardViewModel{
		Page:          h.page(w, r),
		TotalExpenses: stats.TotalExpenses,
		TotalDebts:    stats.TotalDebts,
		ExpenseCount:  stats.ExpenseCount,
		DebtCount:     stats.DebtCount,
		Recent:        expenseItems(recent, now),
		Upcoming:      expenseItems(upcoming, now),
	})
}

// DebtsViewModel is the data passed to the debts template.
type DebtsViewModel struct {
	Page
	Debts        []ExpenseItem
	TotalDebts   float64
	OverdueCount int
	TotalOverdue float64
}

// ListDebts renders the user's debts ordered by due date, soonest first,
// together with overdue count and totals.
func (h *Handlers) ListDebts(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	now := time.Now()

	debts, err := h.db.ListDebts(user.ID)
	if err != nil {
		h.serverError(w, r, "list debts", err)
		return
	}
	stats, err := h.db.GetDashboardStats(user.ID)
	if err != nil {
		h.serverError(w, r, "debt totals", err)
		return
	}
	overdueCount, totalOverdue, err := h.db.OverdueStats(user.ID, now)
	if err != nil {
		h.serverError(w, r, "overdue stats", err)
		return
	}

	h.render(w, r, "debts.html", DebtsViewModel{
		Page:         h.page(w, r),
		Debts:        expenseItems(debts, now),
		TotalDebts:   stats.TotalDebts,
		OverdueCount: overdueCount,
		TotalOverdue: totalOverdue,
	})
}

// SummaryViewModel is the data passed to the summary template.
type SummaryViewModel struct {
	Page
	Debts      []ExpenseItem
	Paid       []ExpenseItem
	Categories []storage.CategoryTotal
	Monthly    []storage.MonthTotal
	TotalPaid  float64
	TotalDebts float64
	GrandTotal float64
}

// Summary renders the full history partitioned into debts and paid expenses,
// with per-category and per-month aggregates.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	now := time.Now()

	expenses, err := h.db.ListExpenses(user.ID)
	if err != nil {
		h.serverError(w, r, "list expenses", err)
		return
	}
	categories, err := h.db.GetCategoryTotals(user.ID)
	if err != nil {
		h.serverError(w, r, "category totals", err)
		return
	}
	monthly, err := h.db.GetMonthlyTotals(user.ID)
	if err != nil {
		h.serverError(w, r, "monthly totals", err)
		return
	}
	stats, err := h.db.GetDashboardStats(user.ID)
	if err != nil {
		h.serverError(w, r, "summary totals", err)
		return
	}

	var debts, paid []ExpenseItem
	for _, item := range expenseItems(expenses, now) {
		if item.IsDebt() {
			debts = append(debts, item)
		} else {
			paid = append(paid, item)
		}
	}

	h.render(w, r, "summary.html", SummaryViewModel{
		Page:       h.page(w, r),
		Debts:      debts,
		Paid:       paid,
		Categories: categories,
		Monthly:    monthly,
		TotalPaid:  stats.TotalExpenses - stats.TotalDebts,
		TotalDebts: stats.TotalDebts,
		GrandTotal: stats.TotalExpenses,
	})
}
