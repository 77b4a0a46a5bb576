package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/currency"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func intPtr(v int) *int { return &v }

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		repo.Close()
	}
}

func TestTransactionsCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		Amount:      decimal.RequireFromString("12.34"),
		Currency:    "EUR",
		Category:    "Food And Drinks",
		Description: "lunch",
		Date:        core.NewDate(2025, 3, 7),
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", created)
	}

	got, err := repo.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Amount.Equal(created.Amount) || got.Currency != "EUR" || !got.Date.Equal(created.Date) || got.RecurringID != "" {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	_, _ = repo.CreateTransaction(ctx, core.Transaction{
		Amount: decimal.NewFromInt(1), Currency: "USD", Category: "Misc", Date: core.NewDate(2025, 1, 1), IsIncome: true,
	})

	from := core.NewDate(2025, 2, 1)
	list, err := repo.ListTransactions(ctx, TransactionFilter{From: &from})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("filter by date failed: %+v", list)
	}

	all, _ := repo.ListTransactions(ctx, TransactionFilter{})
	if len(all) != 2 || !all[0].Date.After(all[1].Date) || !all[1].IsIncome {
		t.Fatalf("expected newest first, got %+v", all)
	}

	if err := repo.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetTransaction(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestRecurringRulesAndDedup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	end := core.NewDate(2025, 12, 31)
	rule, err := repo.CreateRecurringRule(ctx, core.RecurringRule{
		Amount:     decimal.NewFromInt(900),
		Currency:   "MKD",
		Category:   "Rent",
		StartDate:  core.NewDate(2025, 1, 1),
		EndDate:    &end,
		Frequency:  core.Monthly,
		DayOfMonth: intPtr(31),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetRecurringRule(ctx, rule.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.DayOfMonth == nil || *got.DayOfMonth != 31 || got.DayOfWeek != nil || got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.LastGenerated != nil {
		t.Fatal("new rule should not have been generated yet")
	}

	occ := core.Transaction{
		Amount: rule.Amount, Currency: rule.Currency, Category: rule.Category,
		Date: core.NewDate(2025, 2, 28), RecurringID: rule.ID,
	}
	if _, err := repo.CreateTransaction(ctx, occ); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateTransaction(ctx, occ); !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	if err := repo.SetLastGenerated(ctx, rule.ID, core.NewDate(2025, 2, 28)); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetLastGenerated(ctx, rule.ID, core.NewDate(2025, 1, 31)); err != nil {
		t.Fatal(err)
	}
	got, _ = repo.GetRecurringRule(ctx, rule.ID)
	if got.LastGenerated == nil || !got.LastGenerated.Equal(core.NewDate(2025, 2, 28)) {
		t.Fatalf("watermark must not move backwards: %v", got.LastGenerated)
	}
	if err := repo.SetLastGenerated(ctx, "missing", core.NewDate(2025, 1, 1)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	rules, err := repo.ListRecurringRules(ctx)
	if err != nil || len(rules) != 1 {
		t.Fatalf("list: %v %v", rules, err)
	}

	if err := repo.DeleteRecurringRule(ctx, rule.ID); err != nil {
		t.Fatal(err)
	}
	txs, _ := repo.ListTransactions(ctx, TransactionFilter{})
	if len(txs) != 1 || txs[0].RecurringID != "" {
		t.Fatalf("generated transactions should survive with no link: %+v", txs)
	}
}

func TestCurrenciesAndRates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	added, err := repo.InsertCurrencies(ctx, currency.DefaultCurrencies())
	if err != nil || added != 3 {
		t.Fatalf("added=%d err=%v", added, err)
	}
	added, _ = repo.InsertCurrencies(ctx, currency.DefaultCurrencies())
	if added != 0 {
		t.Fatalf("second insert should be a no-op, added %d", added)
	}

	if err := repo.SetDefaultCurrency(ctx, "EUR"); err != nil {
		t.Fatal(err)
	}
	list, _ := repo.ListCurrencies(ctx)
	defaults := 0
	for _, c := range list {
		if c.IsDefault {
			defaults++
			if c.Code != "EUR" {
				t.Fatalf("wrong default %s", c.Code)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default, got %d", defaults)
	}
	if err := repo.SetDefaultCurrency(ctx, "JPY"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	for base, targets := range currency.DefaultRates() {
		if err := repo.UpsertRates(ctx, base, targets); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.UpsertRates(ctx, "EUR", map[core.CurrencyCode]decimal.Decimal{"MKD": decimal.RequireFromString("61.6")}); err != nil {
		t.Fatal(err)
	}

	table, err := repo.RateTable(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if r, _ := table.Rate("EUR", "MKD"); !r.Equal(decimal.RequireFromString("61.6")) {
		t.Fatalf("expected updated rate, got %s", r)
	}
	if r, _ := table.Rate("MKD", "USD"); !r.Equal(decimal.RequireFromString("0.0176")) {
		t.Fatalf("expected MKD->USD 0.0176, got %s", r)
	}

	usd, _ := repo.RateTable(ctx, "USD")
	if len(usd) != 1 || len(usd["USD"]) != 2 {
		t.Fatalf("expected only USD rates, got %v", usd)
	}
}

func TestKVStoreBacksCurrencyCache(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	kv := repo.KV()

	if err := kv.SetAll(ctx, map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatal(err)
	}
	if err := kv.SetAll(ctx, map[string]string{"a": "3"}); err != nil {
		t.Fatal(err)
	}
	values, err := kv.GetAll(ctx, "a", "b", "c")
	if err != nil {
		t.Fatal(err)
	}
	if values["a"] != "3" || values["b"] != "2" || len(values) != 2 {
		t.Fatalf("unexpected values %v", values)
	}
	if _, ok, _ := kv.Get(ctx, "c"); ok {
		t.Fatal("missing key reported present")
	}

	store := currency.NewKVCacheStore(kv)
	state := currency.CacheState{
		DefaultCurrency: "MKD",
		UsingFallback:   true,
		Currencies:      core.MarkDefault(currency.DefaultCurrencies(), "MKD"),
		Rates:           currency.DefaultRates(),
		PendingDefault:  true,
	}
	if err := store.Save(ctx, state); err != nil {
		t.Fatal(err)
	}
	loaded, found, err := store.Load(ctx)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if loaded.DefaultCurrency != "MKD" || !loaded.UsingFallback || !loaded.PendingDefault || loaded.ForceOffline {
		t.Fatalf("unexpected state %+v", loaded)
	}
	if r, _ := loaded.Rates.Rate("EUR", "MKD"); !r.Equal(decimal.RequireFromString("61.5")) {
		t.Fatalf("unexpected rate %s", r)
	}
}

func TestUpdateTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rule, err := repo.CreateRecurringRule(ctx, core.RecurringRule{
		Amount: decimal.NewFromInt(10), Currency: "USD", Category: "Gym",
		StartDate: core.NewDate(2025, 1, 1), Frequency: core.Daily,
	})
	if err != nil {
		t.Fatal(err)
	}
	first, _ := repo.CreateTransaction(ctx, core.Transaction{
		Amount: rule.Amount, Currency: "USD", Category: "Gym", Date: core.NewDate(2025, 1, 1), RecurringID: rule.ID,
	})
	second, _ := repo.CreateTransaction(ctx, core.Transaction{
		Amount: rule.Amount, Currency: "USD", Category: "Gym", Date: core.NewDate(2025, 1, 2), RecurringID: rule.ID,
	})

	edit := first
	edit.Amount = decimal.RequireFromString("12.5")
	edit.Description = "with sauna"
	edit.IsIncome = true
	updated, err := repo.UpdateTransaction(ctx, edit)
	if err != nil {
		t.Fatal(err)
	}
	if !updated.Amount.Equal(edit.Amount) || updated.Description != "with sauna" || !updated.IsIncome {
		t.Fatalf("update not stored: %+v", updated)
	}
	if updated.RecurringID != rule.ID || updated.CreatedAt.Unix() != first.CreatedAt.Unix() {
		t.Fatalf("rule link and creation time must be kept: %+v", updated)
	}

	edit.Date = second.Date
	if _, err := repo.UpdateTransaction(ctx, edit); !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("moving onto another occurrence: expected duplicate, got %v", err)
	}

	edit.ID = "missing"
	if _, err := repo.UpdateTransaction(ctx, edit); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBudgetsCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food, err := repo.CreateBudget(ctx, core.Budget{
		Category: "Food", Amount: decimal.NewFromInt(300), Currency: "EUR", Period: core.PeriodMonthly,
	})
	if err != nil {
		t.Fatal(err)
	}
	if food.ID == "" || food.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps, got %+v", food)
	}
	if _, err := repo.CreateBudget(ctx, core.Budget{
		Category: "Food", Amount: decimal.NewFromInt(1), Currency: "EUR", Period: core.PeriodWeekly,
	}); !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("second budget for a category: expected duplicate, got %v", err)
	}
	rent, _ := repo.CreateBudget(ctx, core.Budget{
		Category: "Rent", Amount: decimal.NewFromInt(900), Currency: "EUR", Period: core.PeriodMonthly,
	})

	got, err := repo.GetBudgetByCategory(ctx, "Food")
	if err != nil || got.ID != food.ID || !got.Amount.Equal(food.Amount) || got.Period != core.PeriodMonthly {
		t.Fatalf("by category = %+v, %v", got, err)
	}
	if _, err := repo.GetBudgetByCategory(ctx, "Travel"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	rent.Category = "Food"
	if _, err := repo.UpdateBudget(ctx, rent); !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("renaming onto a taken category: expected duplicate, got %v", err)
	}
	food.Amount = decimal.NewFromInt(350)
	food.Period = core.PeriodWeekly
	updated, err := repo.UpdateBudget(ctx, food)
	if err != nil || !updated.Amount.Equal(decimal.NewFromInt(350)) || updated.Period != core.PeriodWeekly {
		t.Fatalf("update = %+v, %v", updated, err)
	}

	list, _ := repo.ListBudgets(ctx)
	if len(list) != 2 || list[0].Category != "Food" {
		t.Fatalf("list = %+v", list)
	}

	if err := repo.DeleteBudget(ctx, food.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetBudget(ctx, food.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.DeleteBudget(ctx, food.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestGoalsCRUDAndContribute(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	deadline := core.NewDate(2025, 12, 1)
	goal, err := repo.CreateGoal(ctx, core.Goal{
		Name: "Holiday", TargetAmount: decimal.NewFromInt(1500), Currency: "EUR",
		Category: "Travel", Deadline: &deadline,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, _ = repo.CreateGoal(ctx, core.Goal{Name: "Laptop", TargetAmount: decimal.NewFromInt(2000), Currency: "USD"})

	got, err := repo.GetGoal(ctx, goal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CurrentAmount.IsZero() || got.Deadline == nil || !got.Deadline.Equal(deadline) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	travel, _ := repo.ListGoals(ctx, "Travel")
	all, _ := repo.ListGoals(ctx, "")
	if len(travel) != 1 || len(all) != 2 {
		t.Fatalf("list by category = %d, all = %d", len(travel), len(all))
	}

	for _, amount := range []string{"100", "250.50"} {
		if got, err = repo.AddToGoal(ctx, goal.ID, decimal.RequireFromString(amount)); err != nil {
			t.Fatal(err)
		}
	}
	if !got.CurrentAmount.Equal(decimal.RequireFromString("350.5")) {
		t.Fatalf("current amount = %s", got.CurrentAmount)
	}
	if _, err := repo.AddToGoal(ctx, "missing", decimal.NewFromInt(1)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	got.Deadline = nil
	got.Name = "Summer holiday"
	updated, err := repo.UpdateGoal(ctx, got)
	if err != nil || updated.Name != "Summer holiday" || updated.Deadline != nil {
		t.Fatalf("update = %+v, %v", updated, err)
	}

	if err := repo.DeleteGoal(ctx, goal.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetGoal(ctx, goal.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
