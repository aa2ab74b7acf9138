package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Pay types of a commitment.
const (
	PayTypeExpenses PayType = 1
	PayTypeSavings  PayType = 2
)

// Commitment categories.
const (
	CategoryEMI  CommitmentCategory = 1
	CategoryFull CommitmentCategory = 2
)

// Commitment statuses. Ongoing and Completed are derived from payments;
// Canceled is only ever set by hand.
const (
	StatusOngoing   Status = 1
	StatusCompleted Status = 2
	StatusCanceled  Status = 3
)

// Expense categories.
const (
	ExpenseHouse       ExpenseCategory = 1
	ExpenseShopping    ExpenseCategory = 2
	ExpenseEMI         ExpenseCategory = 3
	ExpenseCash        ExpenseCategory = 4
	ExpenseTransferred ExpenseCategory = 5
	ExpenseBillPayment ExpenseCategory = 6
	ExpenseSavings     ExpenseCategory = 7
)

// Saving methods, only meaningful for expenses in the savings category.
const (
	SavingNone         SavingMethod = 0
	SavingBankTransfer SavingMethod = 1
	SavingCash         SavingMethod = 2
	SavingOther        SavingMethod = 3
)

// NoteColors lists the palette notes may be tagged with. The first one is the
// default.
var NoteColors = []string{"#2E365A", "#6D2932", "#006A67", "#C96868", "#708871", "#605678"}

type (
	PayType            int
	CommitmentCategory int
	Status             int
	ExpenseCategory    int
	SavingMethod       int

	// Date is a calendar day without time of day.
	Date struct {
		time.Time
	}

	Commitment struct {
		ID            string             `json:"_id"`
		PayFor        string             `json:"payFor"`
		TotalEmi      int                `json:"totalEmi"`
		Paid          *int               `json:"paid"`
		Pending       int                `json:"pending"`
		EmiAmount     Decimal            `json:"emiAmount"`
		PaidAmount    Decimal            `json:"paidAmount"`
		BalanceAmount Decimal            `json:"balanceAmount"`
		PayType       PayType            `json:"payType"`
		Category      CommitmentCategory `json:"category"`
		DueDate       int                `json:"dueDate"`
		Remarks       string             `json:"remarks"`
		Attachments   []string           `json:"attachment"`
		CreatedBy     string             `json:"createdBy"`
		Status        Status             `json:"status"`
		// StatusOverride holds a manual status that wins over the derived one.
		StatusOverride Status    `json:"-"`
		CreatedAt      time.Time `json:"createdAt"`
		UpdatedAt      time.Time `json:"updatedAt"`
	}

	HistoryEntry struct {
		ID           string    `json:"_id"`
		CommitmentID string    `json:"commitmentId"`
		Amount       Decimal   `json:"amount"`
		CurrentEmi   int       `json:"currentEmi"`
		PaidDate     Date      `json:"paidDate"`
		Remarks      string    `json:"remarks"`
		Attachment   string    `json:"attachment,omitempty"`
		CreatedBy    string    `json:"createdBy"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}

	// Expense is a dated outgoing amount. Savings are expenses in the
	// ExpenseSavings category carrying a SavingMethod.
	Expense struct {
		ID           string          `json:"_id"`
		Name         string          `json:"name"`
		Amount       Decimal         `json:"amount"`
		Category     ExpenseCategory `json:"category"`
		SavingMethod SavingMethod    `json:"savingMethod,omitempty"`
		PaidOn       Date            `json:"paidOn"`
		Remarks      string          `json:"remarks"`
		Attachment   string          `json:"attachment,omitempty"`
		CreatedBy    string          `json:"createdBy"`
		CreatedAt    time.Time       `json:"createdAt"`
		UpdatedAt    time.Time       `json:"updatedAt"`
	}

	Note struct {
		ID         string    `json:"_id"`
		Text       string    `json:"text"`
		Color      string    `json:"color"`
		Attachment string    `json:"attachment,omitempty"`
		CreatedBy  string    `json:"createdBy"`
		CreatedAt  time.Time `json:"createdAt"`
		UpdatedAt  time.Time `json:"updatedAt"`
	}

	User struct {
		ID             string    `json:"_id"`
		Name           string    `json:"name"`
		Email          string    `json:"email"`
		PasswordHash   string    `json:"-"`
		NotifyEmail    bool      `json:"notifyEmail"`
		TelegramChatID int64     `json:"telegramChatId,omitempty"`
		CreatedAt      time.Time `json:"createdAt"`
	}
)

func (p PayType) Valid() bool { return p == PayTypeExpenses || p == PayTypeSavings }

func (p PayType) Label() string {
	switch p {
	case PayTypeExpenses:
		return "Expenses"
	case PayTypeSavings:
		return "Savings"
	default:
		return "Unknown"
	}
}

func (c CommitmentCategory) Valid() bool { return c == CategoryEMI || c == CategoryFull }

func (c CommitmentCategory) Label() string {
	switch c {
	case CategoryEMI:
		return "EMI"
	case CategoryFull:
		return "Full Payment"
	default:
		return "Unknown"
	}
}

func (s Status) Valid() bool {
	return s == StatusOngoing || s == StatusCompleted || s == StatusCanceled
}

func (s Status) Label() string {
	switch s {
	case StatusOngoing:
		return "Ongoing"
	case StatusCompleted:
		return "Completed"
	case StatusCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

func (c ExpenseCategory) Valid() bool { return c >= ExpenseHouse && c <= ExpenseSavings }

func (c ExpenseCategory) Label() string {
	switch c {
	case ExpenseHouse:
		return "House Expenses"
	case ExpenseShopping:
		return "Shopping"
	case ExpenseEMI:
		return "EMI"
	case ExpenseCash:
		return "Cash"
	case ExpenseTransferred:
		return "Transferred To"
	case ExpenseBillPayment:
		return "Bill Payment"
	case ExpenseSavings:
		return "Savings"
	default:
		return "Others"
	}
}

func (m SavingMethod) Valid() bool { return m >= SavingBankTransfer && m <= SavingOther }

func (m SavingMethod) Label() string {
	switch m {
	case SavingBankTransfer:
		return "Bank Transfer"
	case SavingCash:
		return "Cash"
	case SavingOther:
		return "Other"
	default:
		return ""
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. RFC 3339 timestamps are accepted and
// truncated to their day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// Today returns the current UTC day.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for TEXT or DATE columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v.Year(), int(v.Month()), v.Day())
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("scan date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// UnmarshalJSON reads the installment counts as Count values, so numeric
// strings and wrapped decimals decode too.
func (c *Commitment) UnmarshalJSON(data []byte) error {
	type plain Commitment
	aux := struct {
		*plain
		TotalEmi Count  `json:"totalEmi"`
		Paid     *Count `json:"paid"`
		Pending  Count  `json:"pending"`
	}{
		plain:    (*plain)(c),
		TotalEmi: Count(c.TotalEmi),
		Pending:  Count(c.Pending),
	}
	if c.Paid != nil {
		paid := Count(*c.Paid)
		aux.Paid = &paid
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.TotalEmi = int(aux.TotalEmi)
	c.Pending = int(aux.Pending)
	c.Paid = nil
	if aux.Paid != nil {
		paid := int(*aux.Paid)
		c.Paid = &paid
	}
	return nil
}

// Validate checks the static attributes of a commitment.
func (c Commitment) Validate() error {
	var errs ValidationErrors
	payFor := strings.TrimSpace(c.PayFor)
	if payFor == "" {
		errs.Add("payFor", "Pay for is required")
	} else if len(payFor) > 200 {
		errs.Add("payFor", "Pay for must be at most 200 characters")
	}
	if c.TotalEmi < 1 {
		errs.Add("totalEmi", "Total EMI must be at least 1")
	}
	if c.Category == CategoryFull && c.TotalEmi != 1 {
		errs.Add("totalEmi", "Full payment commitments have exactly one installment")
	}
	if c.EmiAmount.IsNegative() {
		errs.Add("emiAmount", "EMI amount cannot be negative")
	}
	if !c.PayType.Valid() {
		errs.Add("payType", "Pay type must be Expenses or Savings")
	}
	if !c.Category.Valid() {
		errs.Add("category", "Category must be EMI or Full")
	}
	if c.DueDate < 1 || c.DueDate > 31 {
		errs.Add("dueDate", "Due date must be a day of month between 1 and 31")
	}
	if len(c.Remarks) > 1000 {
		errs.Add("remarks", "Remarks must be at most 1000 characters")
	}
	if strings.TrimSpace(c.CreatedBy) == "" {
		errs.Add("createdBy", "Owner is required")
	}
	return errs.Err()
}

func (h HistoryEntry) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(h.CommitmentID) == "" {
		errs.Add("commitmentId", "Commitment is required")
	}
	if !h.Amount.IsPositive() {
		errs.Add("amount", "Amount must be greater than zero")
	}
	if h.CurrentEmi < 0 {
		errs.Add("currentEmi", "Current EMI cannot be negative")
	}
	if err := h.PaidDate.Validate(); err != nil {
		errs.Add("paidDate", "Paid date is required")
	}
	if len(h.Remarks) > 1000 {
		errs.Add("remarks", "Remarks must be at most 1000 characters")
	}
	return errs.Err()
}

func (e Expense) Validate() error {
	var errs ValidationErrors
	name := strings.TrimSpace(e.Name)
	if name == "" {
		errs.Add("name", "Name is required")
	} else if len(name) > 200 {
		errs.Add("name", "Name must be at most 200 characters")
	}
	if !e.Amount.IsPositive() {
		errs.Add("amount", "Amount must be greater than zero")
	}
	if !e.Category.Valid() {
		errs.Add("category", "Unknown expense category")
	}
	if e.Category == ExpenseSavings && !e.SavingMethod.Valid() {
		errs.Add("savingMethod", "Saving method must be Bank Transfer, Cash or Other")
	}
	if e.Category != ExpenseSavings && e.SavingMethod != SavingNone {
		errs.Add("savingMethod", "Saving method is only allowed for savings")
	}
	if err := e.PaidOn.Validate(); err != nil {
		errs.Add("paidOn", "Paid on date is required")
	}
	if strings.TrimSpace(e.CreatedBy) == "" {
		errs.Add("createdBy", "Owner is required")
	}
	return errs.Err()
}

// IsSaving reports whether the expense is a savings contribution.
func (e Expense) IsSaving() bool { return e.Category == ExpenseSavings }

func (n Note) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(n.Text) == "" {
		errs.Add("text", "Note text is required")
	} else if len(n.Text) > 5000 {
		errs.Add("text", "Note text must be at most 5000 characters")
	}
	if !ValidNoteColor(n.Color) {
		errs.Add("color", "Unknown note color")
	}
	if strings.TrimSpace(n.CreatedBy) == "" {
		errs.Add("createdBy", "Owner is required")
	}
	return errs.Err()
}

// ValidNoteColor reports whether color belongs to the note palette.
func ValidNoteColor(color string) bool {
	for _, c := range NoteColors {
		if strings.EqualFold(c, color) {
			return true
		}
	}
	return false
}

func (u User) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(u.Name) == "" {
		errs.Add("name", "Name is required")
	}
	email := strings.TrimSpace(u.Email)
	if email == "" || !strings.Contains(email, "@") {
		errs.Add("email", "A valid email is required")
	}
	return errs.Err()
}
