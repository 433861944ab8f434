package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
	Yearly   Frequency = "yearly"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	AccountCash          AccountType = "cash"
	AccountBank          AccountType = "bank"
	AccountCreditCard    AccountType = "credit_card"
	AccountDebitCard     AccountType = "debit_card"
	AccountDigitalWallet AccountType = "digital_wallet"
)

const (
	RecurrenceActive RecurrenceState = "active"
	RecurrenceEnded  RecurrenceState = "ended"
)

type (
	Frequency       string
	TransactionType string
	AccountType     string
	RecurrenceState string

	Date struct {
		time.Time
	}

	// Account holds a cached running balance over its transactions.
	// CurrentBalance is mutated only by the ledger synchronizer.
	Account struct {
		ID             int64
		UserID         int64
		Name           string
		Type           AccountType
		InitialBalance Money
		CurrentBalance Money
		Currency       string
		Active         bool
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	// Transaction is a single ledger movement. Recurring templates carry
	// Recurrent=true plus a Frequency; materialized instances carry a
	// ParentID back-reference and are never themselves recurrent.
	Transaction struct {
		ID          int64
		UserID      int64
		AccountID   int64
		CategoryID  int64
		Type        TransactionType
		Amount      Money
		Description string
		Date        Date
		Time        string // time-of-day, "HH:MM"
		Recurrent   bool
		Frequency   Frequency
		EndDate     Date  // zero means open-ended
		ParentID    int64 // 0 means none
		State       RecurrenceState
		Tags        string // comma-separated
		ReceiptURL  string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	User struct {
		ID        int64
		Email     string
		Name      string
		Active    bool
		CreatedAt time.Time
	}
)

var (
	ErrInvalidDay             = errors.New("invalid day")
	ErrInvalidMonth           = errors.New("invalid month")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrEmptyDescription       = errors.New("empty description")
	ErrEmptyName              = errors.New("empty name")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidCurrency        = errors.New("invalid currency code")
	ErrMissingAccount         = errors.New("missing account reference")
	ErrMissingCategory        = errors.New("missing category reference")
	ErrAccountHasHistory      = errors.New("account has transaction history")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrCategoryInUse          = errors.New("category has transactions")
	ErrCategoryPredefined     = errors.New("predefined categories cannot be deleted")
	ErrCategoryKindMismatch   = errors.New("category kind does not match transaction type")
	ErrOutsideEditWindow      = errors.New("transaction is outside the editable window")
	ErrNotFound               = errors.New("not found")
)

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, errors.New("invalid date format, want YYYY-MM-DD")
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Yearly:
		return nil
	default:
		return &InvalidRecurrenceError{Reason: "unknown frequency " + string(f)}
	}
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidTransactionType
	}
}

func (t AccountType) Validate() error {
	switch t {
	case AccountCash, AccountBank, AccountCreditCard, AccountDebitCard, AccountDigitalWallet:
		return nil
	default:
		return ErrInvalidAccountType
	}
}

// AllowsNegativeBalance reports whether committed transactions may drive
// the account balance below zero. Only credit cards may.
func (t AccountType) AllowsNegativeBalance() bool {
	return t == AccountCreditCard
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if err := a.Type.Validate(); err != nil {
		return err
	}
	if len(a.Currency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

// SignedAmount is the amount with direction applied: positive for
// income, negative for expense. Amount itself is always positive.
func (t Transaction) SignedAmount() Money {
	if t.Type == Income {
		return t.Amount
	}
	return t.Amount.Neg()
}

// IsTemplate reports whether this transaction is a recurring template
// rather than a single movement.
func (t Transaction) IsTemplate() bool {
	return t.Recurrent
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if t.AccountID == 0 {
		return ErrMissingAccount
	}
	if t.CategoryID == 0 {
		return ErrMissingCategory
	}
	if t.Recurrent {
		if t.ParentID != 0 {
			return &InvalidRecurrenceError{TemplateID: t.ID, Reason: "materialized instance cannot be recurrent"}
		}
		if err := t.Frequency.Validate(); err != nil {
			return err
		}
		if !t.EndDate.IsZero() && t.EndDate.Before(t.Date.Time) {
			return errors.New("end date must not precede start date")
		}
	} else if t.Frequency != "" {
		return &InvalidRecurrenceError{TemplateID: t.ID, Reason: "frequency set on a non-recurring transaction"}
	}
	return nil
}
