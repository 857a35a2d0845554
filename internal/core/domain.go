package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

const (
	Daily   Cadence = "daily"
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
	Yearly  Cadence = "yearly"
)

// CategoryOther is the bucket for expense transactions without a category.
const CategoryOther = "other"

type (
	TransactionType string

	Cadence string

	// Date is a calendar date with no time component.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Period identifies the month all filtering and aggregation is scoped to.
	Period struct {
		Month int `json:"month"` // 1-12
		Year  int `json:"year"`
	}

	// Recurrence describes how a transaction repeats: either a named
	// cadence or a custom interval in days, never both. LastRun marks
	// the last materialization so the template's own date, and with it
	// the period it is counted in, never moves.
	Recurrence struct {
		Every        Cadence `json:"every,omitempty"`
		IntervalDays int     `json:"interval_days,omitempty"`
		LastRun      *Date   `json:"last_run,omitempty"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		Recurrence  *Recurrence     `json:"recurrence,omitempty"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrEmptyDescription  = errors.New("empty description")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) Day() int   { return d.Time.Day() }
func (d Date) Month() int { return int(d.Time.Month()) }
func (d Date) Year() int  { return d.Time.Year() }

// MarshalJSON encodes the date as "2006-01-02".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

// UnmarshalJSON accepts "2006-01-02" and, for records persisted by older
// versions, full RFC 3339 timestamps whose time component is discarded.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return ErrInvalidDate
	}
	d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return nil
}

func (t TransactionType) Validate() error {
	switch t {
	case TypeIncome, TypeExpense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r Recurrence) Validate() error {
	switch {
	case r.Every != "" && r.IntervalDays != 0:
		return ErrInvalidRecurrence
	case r.IntervalDays < 0:
		return ErrInvalidRecurrence
	case r.Every != "":
		switch r.Every {
		case Daily, Weekly, Monthly, Yearly:
			return nil
		default:
			return ErrInvalidRecurrence
		}
	case r.IntervalDays == 0:
		return ErrInvalidRecurrence
	}
	return nil
}

func (t Transaction) Validate() error {
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
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Recurrence != nil {
		if err := t.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PeriodOf returns the period containing d.
func PeriodOf(d Date) Period {
	return Period{Month: d.Month(), Year: d.Year()}
}

// CurrentPeriod returns the period containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Month: int(now.Month()), Year: now.Year()}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 || p.Year < 1 {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d Date) bool {
	return d.Month() == p.Month && d.Year() == p.Year
}

// Start is midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// DaysPassed counts days elapsed since the period start, inclusive of the
// first day. Returns 0 when now is before the period starts.
func (p Period) DaysPassed(now time.Time) int {
	days := int(now.Sub(p.Start()).Hours()/24) + 1
	if days < 0 {
		return 0
	}
	return days
}

// Previous steps back one month, crossing year boundaries.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Next steps forward one month, crossing year boundaries.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// Key returns a stable "YYYY-MM" string for logging and cache keys.
func (p Period) Key() string {
	return p.Start().Format("2006-01")
}
