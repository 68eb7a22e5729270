package storage

import (
	"errors"
	"fmt"
	"time"

	"debttrack/internal/auth"
	"debttrack/internal/models"
)

// EnsureAdmin creates the initial admin account if it does not exist yet.
// It reports whether a user was created.
func (db *DB) EnsureAdmin(username, password string) (bool, error) {
	_, err := db.GetUserByUsername(username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := db.CreateUser(username, hash, true); err != nil {
		return false, fmt.Errorf("create admin user: %w", err)
	}
	return true, nil
}

type seedExpense struct {
	name     string
	amount   float64
	category string
	date     string
	dueDate  string
	element  string
	comment  string
}

type seedUser struct {
	username string
	password string
	isAdmin  bool
	expenses []seedExpense
}

var demoUsers = []seedUser{
	{"Javier", "password", true, []seedExpense{
		{"Grocery Shopping", 85.50, "Food", "2025-01-15", "", "Supermarket", "Weekly groceries"},
		{"Gas Bill", 120.00, "Utilities", "2025-01-10", "2025-10-31", "Gas Company", "Monthly bill"},
		{"Netflix Subscription", 15.99, "Leisure", "2025-01-01", "", "Netflix", "Monthly subscription"},
	}},
	{"Rodrigo", "password", false, []seedExpense{
		{"Uber Ride", 12.50, "Transport", "2024-01-20", "", "Uber", "Airport ride"},
		{"Restaurant Dinner", 45.00, "Food", "2024-01-18", "", "Restaurant", "Date night"},
		{"Gym Membership", 50.00, "Health", "2024-01-01", "2024-02-01", "Fitness Center", "Monthly fee"},
	}},
	{"Charlie", "Charlie123", false, []seedExpense{
		{"Electricity Bill", 95.75, "Utilities", "2024-01-12", "", "Power Company", "Monthly bill"},
		{"Coffee Shop", 4.50, "Food", "2024-01-22", "", "Starbucks", "Morning coffee"},
		{"Phone Bill", 65.00, "Utilities", "2024-01-05", "2024-02-05", "Mobile Carrier", "Monthly plan"},
	}},
	{"Diana", "Diana123", false, []seedExpense{
		{"Rent Payment", 1200.00, "Rent", "2024-01-01", "2024-02-01", "Landlord", "Monthly rent"},
		{"Book Purchase", 25.99, "Leisure", "2024-01-16", "", "Bookstore", "Programming book"},
		{"Doctor Visit", 150.00, "Health", "2024-01-14", "", "Medical Center", "Annual checkup"},
	}},
	{"Eve", "Eve123", true, []seedExpense{
		{"Office Supplies", 35.00, "Work", "2024-01-19", "", "Office Depot", "Notebooks and pens"},
		{"Team Lunch", 75.00, "Food", "2024-01-17", "", "Restaurant", "Team building"},
		{"Software License", 99.00, "Work", "2024-01-01", "2024-02-01", "Software Co", "Annual license"},
	}},
}

// SeedDemoData creates a set of demo users with predefined expenses and
// debts. It is idempotent: when any user beyond the admin account already
// exists the seed is skipped.
func (db *DB) SeedDemoData() error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 1 {
		return nil
	}

	for _, su := range demoUsers {
		hash, err := auth.HashPassword(su.password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", su.username, err)
		}
		user, err := db.CreateUser(su.username, hash, su.isAdmin)
		if err != nil {
			return fmt.Errorf("create user %s: %w", su.username, err)
		}

		for _, se := range su.expenses {
			date, err := time.Parse("2006-01-02", se.date)
			if err != nil {
				return fmt.Errorf("seed expense %s: %w", se.name, err)
			}
			expense := models.Expense{
				Name:     se.name,
				Amount:   se.amount,
				Category: se.category,
				Date:     date,
				Element:  se.element,
				Comment:  se.comment,
				UserID:   user.ID,
			}
			if se.dueDate != "" {
				due, err := time.Parse("2006-01-02", se.dueDate)
				if err != nil {
					return fmt.Errorf("seed expense %s: %w", se.name, err)
				}
				expense.DueDate = &due
			}
			if err := db.CreateExpense(&expense); err != nil {
				return fmt.Errorf("seed expense %s: %w", se.name, err)
			}
		}
	}
	return nil
}
