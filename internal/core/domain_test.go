package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-31")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2025 || d.Month() != 1 || d.Day() != 31 {
		t.Fatalf("parsed wrong date: %s", d)
	}
	if _, err := ParseDate("31/01/2025"); err == nil {
		t.Fatalf("expected error for wrong format")
	}
}

func TestAccountTypeNegativeBalance(t *testing.T) {
	tests := []struct {
		typ  AccountType
		want bool
	}{
		{AccountCash, false},
		{AccountBank, false},
		{AccountCreditCard, true},
		{AccountDebitCard, false},
		{AccountDigitalWallet, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.AllowsNegativeBalance(); got != tt.want {
				t.Errorf("AllowsNegativeBalance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccountValidate(t *testing.T) {
	good := Account{Name: "Cuenta Nomina", Type: AccountBank, Currency: "COP"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Account{
		{Name: "", Type: AccountBank, Currency: "COP"},
		{Name: "x", Type: "savings", Currency: "COP"},
		{Name: "x", Type: AccountCash, Currency: "PESOS"},
	}
	for i, a := range bads {
		if err := a.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionSignedAmount(t *testing.T) {
	amount := MustMoney("75.50")
	in := Transaction{Type: Income, Amount: amount}
	out := Transaction{Type: Expense, Amount: amount}

	if got := in.SignedAmount(); !got.Equal(amount) {
		t.Fatalf("income signed amount = %s, want %s", got, amount)
	}
	if got := out.SignedAmount(); !got.Equal(amount.Neg()) {
		t.Fatalf("expense signed amount = %s, want %s", got, amount.Neg())
	}
}

func TestTransactionValidate(t *testing.T) {
	base := Transaction{
		AccountID:   1,
		CategoryID:  2,
		Type:        Expense,
		Amount:      MustMoney("10.00"),
		Description: "mercado",
		Date:        NewDate(2025, 3, 15),
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }},
		{"empty description", func(tx *Transaction) { tx.Description = "" }},
		{"zero amount", func(tx *Transaction) { tx.Amount = MoneyZero() }},
		{"negative amount", func(tx *Transaction) { tx.Amount = MustMoney("-5") }},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }},
		{"missing account", func(tx *Transaction) { tx.AccountID = 0 }},
		{"missing category", func(tx *Transaction) { tx.CategoryID = 0 }},
		{"recurrent without frequency", func(tx *Transaction) { tx.Recurrent = true }},
		{"recurrent with bad frequency", func(tx *Transaction) { tx.Recurrent = true; tx.Frequency = "hourly" }},
		{"frequency without recurrence", func(tx *Transaction) { tx.Frequency = Monthly }},
		{"recurrent instance", func(tx *Transaction) { tx.Recurrent = true; tx.Frequency = Weekly; tx.ParentID = 9 }},
		{"end before start", func(tx *Transaction) {
			tx.Recurrent = true
			tx.Frequency = Monthly
			tx.EndDate = NewDate(2025, 1, 1)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base
			tt.mutate(&tx)
			if err := tx.Validate(); err == nil {
				t.Errorf("expected error")
			}
		})
	}

	template := base
	template.Recurrent = true
	template.Frequency = Biweekly
	template.EndDate = NewDate(2025, 12, 31)
	if err := template.Validate(); err != nil {
		t.Fatalf("template expected ok, got %v", err)
	}
}

func TestInvalidRecurrenceUnwraps(t *testing.T) {
	tx := Transaction{
		AccountID:   1,
		CategoryID:  1,
		Type:        Expense,
		Amount:      MustMoney("1"),
		Description: "x",
		Date:        NewDate(2025, 1, 1),
		Recurrent:   true,
		Frequency:   "fortnightly",
	}
	err := tx.Validate()
	if !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("expected ErrInvalidRecurrence, got %v", err)
	}
	var ire *InvalidRecurrenceError
	if !errors.As(err, &ire) {
		t.Fatalf("expected *InvalidRecurrenceError, got %T", err)
	}
}
