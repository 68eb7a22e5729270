package handlers

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"debttrack/internal/auth"
	"debttrack/internal/models"
	"debttrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// HandlersTestSuite drives the full HTTP stack against an in-memory database.
type HandlersTestSuite struct {
	suite.Suite
	db     *storage.DB
	server *httptest.Server
	client *http.Client
	alice  *models.User
	bob    *models.User
}

func (suite *HandlersTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	h := NewHandlers(db, false)
	suite.server = httptest.NewServer(h.Routes())

	jar, err := cookiejar.New(nil)
	require.NoError(suite.T(), err)
	suite.client = &http.Client{Jar: jar}

	suite.alice = suite.createUser("alice", "alicepass", false)
	suite.bob = suite.createUser("bob", "bobpass", false)
}

func (suite *HandlersTestSuite) TearDownTest() {
	if suite.server != nil {
		suite.server.Close()
	}
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *HandlersTestSuite) createUser(username, password string, isAdmin bool) *models.User {
	hash, err := auth.HashPassword(password)
	require.NoError(suite.T(), err)
	user, err := suite.db.CreateUser(username, hash, isAdmin)
	require.NoError(suite.T(), err)
	return user
}

// noRedirectClient shares the session jar but stops at the first response,
// so redirects can be asserted directly.
func (suite *HandlersTestSuite) noRedirectClient() *http.Client {
	return &http.Client{
		Jar: suite.client.Jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (suite *HandlersTestSuite) login(username, password string) {
	resp, err := suite.noRedirectClient().PostForm(suite.server.URL+"/login", url.Values{
		"username": {username},
		"password": {password},
	})
	require.NoError(suite.T(), err)
	defer resp.Body.Close()
	require.Equal(suite.T(), http.StatusFound, resp.StatusCode, "login should redirect")
	require.Equal(suite.T(), "/", resp.Header.Get("Location"))
}

func (suite *HandlersTestSuite) get(path string) (int, string) {
	resp, err := suite.client.Get(suite.server.URL + path)
	require.NoError(suite.T(), err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	return resp.StatusCode, string(body)
}

func (suite *HandlersTestSuite) postForm(path string, form url.Values) *http.Response {
	resp, err := suite.noRedirectClient().PostForm(suite.server.URL+path, form)
	require.NoError(suite.T(), err)
	suite.T().Cleanup(func() { resp.Body.Close() })
	return resp
}

func expenseForm(name, amount, category, date, dueDate string) url.Values {
	return url.Values{
		"name":     {name},
		"amount":   {amount},
		"category": {category},
		"date":     {date},
		"due_date": {dueDate},
	}
}

func (suite *HandlersTestSuite) TestProtectedRoutesRedirectToLogin() {
	paths := []string{"/", "/expenses", "/expenses/new", "/expenses/1/edit", "/debts", "/summary"}
	client := suite.noRedirectClient()

	for _, path := range paths {
		resp, err := client.Get(suite.server.URL + path)
		require.NoError(suite.T(), err)
		resp.Body.Close()
		assert.Equal(suite.T(), http.StatusFound, resp.StatusCode, "GET %s", path)
		assert.Equal(suite.T(), "/login", resp.Header.Get("Location"), "GET %s", path)
	}
}

func (suite *HandlersTestSuite) TestLoginWithValidCredentials() {
	suite.login("alice", "alicepass")

	status, body := suite.get("/")
	assert.Equal(suite.T(), http.StatusOK, status)
	assert.Contains(suite.T(), body, "alice", "dashboard should greet the session user")
	assert.Contains(suite.T(), body, "Welcome back, alice!", "flash should be shown once")

	// Flash is one-shot.
	_, body = suite.get("/")
	assert.NotContains(suite.T(), body, "Welcome back, alice!")
}

func (suite *HandlersTestSuite) TestLoginWithWrongPassword() {
	resp := suite.postForm("/login", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	})
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode, "failed login re-renders the form")
	assert.Contains(suite.T(), string(body), "Invalid username or password")

	// No session was established.
	client := suite.noRedirectClient()
	check, err := client.Get(suite.server.URL + "/")
	require.NoError(suite.T(), err)
	check.Body.Close()
	assert.Equal(suite.T(), http.StatusFound, check.StatusCode)
}

func (suite *HandlersTestSuite) TestLoginWithUnknownUsername() {
	resp := suite.postForm("/login", url.Values{
		"username": {"nobody"},
		"password": {"whatever"},
	})
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), string(body), "Invalid username or password")
}

func (suite *HandlersTestSuite) TestLogoutClearsSession() {
	suite.login("alice", "alicepass")

	status, _ := suite.get("/")
	require.Equal(suite.T(), http.StatusOK, status)

	resp, err := suite.noRedirectClient().Get(suite.server.URL + "/logout")
	require.NoError(suite.T(), err)
	resp.Body.Close()
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), "/login", resp.Header.Get("Location"))

	check, err := suite.noRedirectClient().Get(suite.server.URL + "/")
	require.NoError(suite.T(), err)
	check.Body.Close()
	assert.Equal(suite.T(), http.StatusFound, check.StatusCode, "session must be gone after logout")
}

func (suite *HandlersTestSuite) TestCreateExpense() {
	suite.login("alice", "alicepass")

	resp := suite.postForm("/expenses/new", expenseForm("Gas Bill", "120.00", "Utilities", "2025-01-10", ""))
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), "/", resp.Header.Get("Location"))

	expenses, err := suite.db.ListExpenses(suite.alice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 1)
	assert.Equal(suite.T(), "Gas Bill", expenses[0].Name)
	assert.InDelta(suite.T(), 120.00, expenses[0].Amount, 0.001)
	assert.False(suite.T(), expenses[0].IsDebt())
}

func (suite *HandlersTestSuite) TestCreateDebt() {
	suite.login("alice", "alicepass")

	resp := suite.postForm("/expenses/new", expenseForm("Rent", "1200.00", "Rent", "2024-01-01", "2024-02-01"))
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)

	debts, err := suite.db.ListDebts(suite.alice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), debts, 1)
	assert.True(suite.T(), debts[0].IsDebt())
	assert.Equal(suite.T(), "2024-02-01", debts[0].DueDate.Format("2006-01-02"))
}

func (suite *HandlersTestSuite) TestCreateExpenseValidation() {
	suite.login("alice", "alicepass")

	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{"missing name", expenseForm("", "10", "Food", "2024-01-01", ""), "Please fill in all required fields"},
		{"missing amount", expenseForm("Lunch", "", "Food", "2024-01-01", ""), "Please fill in all required fields"},
		{"missing category", expenseForm("Lunch", "10", "", "2024-01-01", ""), "Please fill in all required fields"},
		{"missing date", expenseForm("Lunch", "10", "Food", "", ""), "Please fill in all required fields"},
		{"non-numeric amount", expenseForm("Lunch", "ten", "Food", "2024-01-01", ""), "Invalid amount"},
		{"malformed date", expenseForm("Lunch", "10", "Food", "January 1st", ""), "Invalid date format"},
		{"malformed due date", expenseForm("Lunch", "10", "Food", "2024-01-01", "someday"), "Invalid due date format"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			resp := suite.postForm("/expenses/new", tt.form)
			body, _ := io.ReadAll(resp.Body)

			assert.Equal(suite.T(), http.StatusOK, resp.StatusCode, "validation failure re-renders the form")
			assert.Contains(suite.T(), string(body), tt.message)

			expenses, err := suite.db.ListExpenses(suite.alice.ID)
			require.NoError(suite.T(), err)
			assert.Empty(suite.T(), expenses, "store must be unchanged after a validation failure")
		})
	}
}

func (suite *HandlersTestSuite) TestEditExpenseReplacesFields() {
	e := &models.Expense{Name: "Gym", Amount: 50.00, Category: "Health", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), UserID: suite.alice.ID}
	require.NoError(suite.T(), suite.db.CreateExpense(e))

	suite.login("alice", "alicepass")

	id := e.ID
	resp := suite.postForm("/expenses/"+itoa(id)+"/edit", expenseForm("Gym Membership", "55.00", "Fitness", "2024-01-02", "2024-03-01"))
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), "/expenses", resp.Header.Get("Location"))

	got, err := suite.db.GetExpense(id)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Gym Membership", got.Name)
	assert.InDelta(suite.T(), 55.00, got.Amount, 0.001)
	assert.Equal(suite.T(), "Fitness", got.Category)
	assert.True(suite.T(), got.IsDebt(), "adding a due date turns the expense into a debt")
	assert.Equal(suite.T(), suite.alice.ID, got.UserID, "ownership never changes")
}

func (suite *HandlersTestSuite) TestEditForeignExpenseForbidden() {
	e := &models.Expense{Name: "Lunch", Amount: 10.00, Category: "Food", Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), UserID: suite.alice.ID}
	require.NoError(suite.T(), suite.db.CreateExpense(e))

	suite.login("bob", "bobpass")

	resp := suite.postForm("/expenses/"+itoa(e.ID)+"/edit", expenseForm("Hijacked", "0", "Food", "2024-01-05", ""))
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode, "foreign edit is rejected with a redirect")
	assert.Equal(suite.T(), "/expenses", resp.Header.Get("Location"))

	got, err := suite.db.GetExpense(e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Lunch", got.Name, "row must be unchanged")

	// The edit form is blocked the same way.
	formResp, err := suite.noRedirectClient().Get(suite.server.URL + "/expenses/" + itoa(e.ID) + "/edit")
	require.NoError(suite.T(), err)
	formResp.Body.Close()
	assert.Equal(suite.T(), http.StatusFound, formResp.StatusCode)
}

func (suite *HandlersTestSuite) TestDeleteForeignExpenseForbidden() {
	e := &models.Expense{Name: "Lunch", Amount: 10.00, Category: "Food", Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), UserID: suite.alice.ID}
	require.NoError(suite.T(), suite.db.CreateExpense(e))

	suite.login("bob", "bobpass")

	resp := suite.postForm("/expenses/"+itoa(e.ID)+"/delete", url.Values{})
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), "/expenses", resp.Header.Get("Location"))

	_, err := suite.db.GetExpense(e.ID)
	assert.NoError(suite.T(), err, "row must still exist")
}

func (suite *HandlersTestSuite) TestUnknownExpenseIs404() {
	suite.login("alice", "alicepass")

	status, _ := suite.get("/expenses/9999/edit")
	assert.Equal(suite.T(), http.StatusNotFound, status)

	resp := suite.postForm("/expenses/9999/delete", url.Values{})
	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
}

func (suite *HandlersTestSuite) TestUnknownRouteIs404() {
	suite.login("alice", "alicepass")

	status, _ := suite.get("/no-such-page")
	assert.Equal(suite.T(), http.StatusNotFound, status)
}

func (suite *HandlersTestSuite) TestExpenseListScopedToUser() {
	require.NoError(suite.T(), suite.db.CreateExpense(&models.Expense{
		Name: "Alice Lunch", Amount: 10.00, Category: "Food",
		Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), UserID: suite.alice.ID,
	}))
	require.NoError(suite.T(), suite.db.CreateExpense(&models.Expense{
		Name: "Bob Dinner", Amount: 20.00, Category: "Food",
		Date: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), UserID: suite.bob.ID,
	}))

	suite.login("alice", "alicepass")

	status, body := suite.get("/expenses")
	assert.Equal(suite.T(), http.StatusOK, status)
	assert.Contains(suite.T(), body, "Alice Lunch")
	assert.NotContains(suite.T(), body, "Bob Dinner", "another user's expenses must not leak")
}

func (suite *HandlersTestSuite) TestDeleteDebtThenDebtsEmpty() {
	suite.login("alice", "alicepass")

	resp := suite.postForm("/expenses/new", expenseForm("Rent", "1200.00", "Rent", "2024-01-01", "2024-02-01"))
	require.Equal(suite.T(), http.StatusFound, resp.StatusCode)

	debts, err := suite.db.ListDebts(suite.alice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), debts, 1)

	del := suite.postForm("/expenses/"+itoa(debts[0].ID)+"/delete", url.Values{})
	require.Equal(suite.T(), http.StatusFound, del.StatusCode)

	debts, err = suite.db.ListDebts(suite.alice.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), debts)

	status, body := suite.get("/debts")
	assert.Equal(suite.T(), http.StatusOK, status)
	assert.NotContains(suite.T(), body, "Rent")
}

func (suite *HandlersTestSuite) TestDashboard() {
	suite.login("alice", "alicepass")

	suite.postForm("/expenses/new", expenseForm("Gas Bill", "120.00", "Utilities", "2025-01-10", ""))
	suite.postForm("/expenses/new", expenseForm("Rent", "1200.00", "Rent", "2024-01-01", "2099-02-01"))

	status, body := suite.get("/")
	assert.Equal(suite.T(), http.StatusOK, status)
	assert.Contains(suite.T(), body, "$1320.00", "total expenses")
	assert.Contains(suite.T(), body, "$1200.00", "total debts")
	assert.Contains(suite.T(), body, "Gas Bill")
	assert.Contains(suite.T(), body, "Rent", "a debt due far in the future is upcoming")
}

func (suite *HandlersTestSuite) TestSummary() {
	suite.login("alice", "alicepass")

	suite.postForm("/expenses/new", expenseForm("Lunch", "10.00", "Food", "2024-01-05", ""))
	suite.postForm("/expenses/new", expenseForm("Dinner", "30.00", "Food", "2024-02-06", ""))
	suite.postForm("/expenses/new", expenseForm("Rent", "1200.00", "Rent", "2024-01-01", "2024-02-01"))

	status, body := suite.get("/summary")
	assert.Equal(suite.T(), http.StatusOK, status)
	assert.Contains(suite.T(), body, "Food")
	assert.Contains(suite.T(), body, "2024-01")
	assert.Contains(suite.T(), body, "2024-02")
	assert.Contains(suite.T(), body, "$1240.00", "grand total")
	assert.Contains(suite.T(), body, "$40.00", "paid total")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
