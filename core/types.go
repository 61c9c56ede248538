package core

import (
	"crypto/subtle"
	"fmt"
	"math"
	"strings"
	"time"
)

// UserID uniquely identifies an employee.
type UserID string

// DepartmentID identifies a department. Departments are flat.
type DepartmentID string

// LogID identifies a single usage log entry.
type LogID string

// UsageType enumerates the kinds of paper usage an employee can report.
type UsageType string

const (
	SingleSided UsageType = "Single-Sided"
	DoubleSided UsageType = "Double-Sided"
	Copy        UsageType = "Copy"
	Digital     UsageType = "Digital"
	Envelope    UsageType = "Envelope"
	Reuse       UsageType = "Reuse"
)

// UsageTypes lists every recognised usage type in display order.
var UsageTypes = []UsageType{SingleSided, DoubleSided, Copy, Digital, Envelope, Reuse}

// Valid reports whether t is one of the enumerated usage types.
func (t UsageType) Valid() bool {
	for _, u := range UsageTypes {
		if t == u {
			return true
		}
	}
	return false
}

// ParseUsageType accepts the canonical spelling ("Double-Sided") as well as
// identifier forms ("double_sided", "doublesided"), case-insensitively.
func ParseUsageType(s string) (UsageType, error) {
	key := usageKey(s)
	if key == "" {
		return "", fmt.Errorf("%w: empty usage type", ErrInvalidInput)
	}
	for _, u := range UsageTypes {
		if usageKey(string(u)) == key {
			return u, nil
		}
	}
	return "", fmt.Errorf("%w: unknown usage type %q", ErrInvalidInput, s)
}

func usageKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// User is an employee taking part in the programme. TotalPoints caches the sum
// of the user's logged eco-points; stores keep it in step with the log.
type User struct {
	ID           UserID       `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	Email        string       `json:"email,omitempty" db:"email"`
	DepartmentID DepartmentID `json:"department_id" db:"department_id"`
	PIN          string       `json:"pin,omitempty" db:"pin"`
	TotalPoints  int64        `json:"total_points" db:"total_points"`
}

// Public returns a copy of u without the PIN, suitable for API responses.
func (u User) Public() User {
	u.PIN = ""
	return u
}

// CheckPIN compares pin against the stored PIN in constant time.
func (u User) CheckPIN(pin string) bool {
	if len(pin) != len(u.PIN) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(pin), []byte(u.PIN)) == 1
}

// Department groups users for the team leaderboards.
type Department struct {
	ID   DepartmentID `json:"id" db:"id"`
	Name string       `json:"name" db:"name"`
}

// LogEntry is an immutable record of one reported usage. DepartmentID is the
// user's department at the time of logging and is never recomputed.
type LogEntry struct {
	ID           LogID        `json:"id" db:"id"`
	UserID       UserID       `json:"user_id" db:"user_id"`
	DepartmentID DepartmentID `json:"department_id" db:"department_id"`
	Type         UsageType    `json:"type" db:"type"`
	Sheets       int64        `json:"sheets" db:"sheets"`
	PaperUsed    int64        `json:"paper_used" db:"paper_used"`
	EcoPoints    int64        `json:"eco_points" db:"eco_points"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// NewLogEntry scores a usage report and builds the entry for user. The
// department is copied from the user as it is right now.
func NewLogEntry(id LogID, user User, typ UsageType, sheets int64, at time.Time) (LogEntry, error) {
	if strings.TrimSpace(string(id)) == "" {
		return LogEntry{}, fmt.Errorf("%w: empty log id", ErrInvalidInput)
	}
	if _, err := NormalizeUserID(user.ID); err != nil {
		return LogEntry{}, err
	}
	s, err := Score(typ, sheets)
	if err != nil {
		return LogEntry{}, err
	}
	return LogEntry{
		ID:           id,
		UserID:       user.ID,
		DepartmentID: user.DepartmentID,
		Type:         typ,
		Sheets:       sheets,
		PaperUsed:    s.PaperUsed,
		EcoPoints:    s.EcoPoints,
		CreatedAt:    at.UTC(),
	}, nil
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, fmt.Errorf("%w: integer overflow", ErrInvalidInput)
	}
	return base + delta, nil
}

// NormalizeUserID trims surrounding whitespace and rejects empty identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	return UserID(s), nil
}

// ValidatePIN ensures pin is exactly four ASCII digits.
func ValidatePIN(pin string) error {
	if len(pin) != 4 {
		return fmt.Errorf("%w: pin must be 4 digits", ErrInvalidInput)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: pin must be 4 digits", ErrInvalidInput)
		}
	}
	return nil
}

// ValidateRoster checks the reference data: unique ids, well-formed PINs and
// that every user's department exists.
func ValidateRoster(departments []Department, users []User) error {
	var errs []string
	depts := make(map[DepartmentID]struct{}, len(departments))
	for i, d := range departments {
		if strings.TrimSpace(string(d.ID)) == "" {
			errs = append(errs, fmt.Sprintf("departments[%d]: empty id", i))
			continue
		}
		if _, dup := depts[d.ID]; dup {
			errs = append(errs, fmt.Sprintf("departments[%d]: duplicate id %s", i, d.ID))
		}
		depts[d.ID] = struct{}{}
	}
	seen := make(map[UserID]struct{}, len(users))
	for i, u := range users {
		if _, err := NormalizeUserID(u.ID); err != nil {
			errs = append(errs, fmt.Sprintf("users[%d]: empty id", i))
			continue
		}
		if _, dup := seen[u.ID]; dup {
			errs = append(errs, fmt.Sprintf("users[%d]: duplicate id %s", i, u.ID))
		}
		seen[u.ID] = struct{}{}
		if err := ValidatePIN(u.PIN); err != nil {
			errs = append(errs, fmt.Sprintf("users[%d]: pin must be 4 digits", i))
		}
		if _, ok := depts[u.DepartmentID]; !ok {
			errs = append(errs, fmt.Sprintf("users[%d]: unknown department %q", i, u.DepartmentID))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(errs, "; "))
	}
	return nil
}
