// Package seed provides the reference roster loaded into an empty store.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/anuphat-bit/Eco-Hero/core"
)

//go:embed roster.json
var defaultRoster []byte

// Roster is the reference data: departments and the users who belong to them.
type Roster struct {
	Departments []core.Department `json:"departments"`
	Users       []core.User       `json:"users"`
}

// Default returns the built-in roster of five departments.
func Default() (Roster, error) {
	return Parse(defaultRoster)
}

// Load reads a roster from path, or the built-in one when path is empty.
func Load(path string) (Roster, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) // #nosec G304 - operator supplied path
	if err != nil {
		return Roster{}, fmt.Errorf("read roster %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a roster document. Totals in the input are
// ignored; every user starts at zero points.
func Parse(data []byte) (Roster, error) {
	var r Roster
	if err := json.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("%w: decode roster: %v", core.ErrInvalidInput, err)
	}
	for i := range r.Users {
		r.Users[i].TotalPoints = 0
	}
	if err := core.ValidateRoster(r.Departments, r.Users); err != nil {
		return Roster{}, err
	}
	return r, nil
}
