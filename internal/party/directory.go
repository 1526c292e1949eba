// Package party resolves bank-statement counterparty names against a
// directory of known customers and suppliers.
package party

import (
	"fmt"
	"os"
	"strings"

	"swisscluster/camt-import/internal/logging"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

// Party types assigned to resolved rows.
const (
	TypeCustomer = "Customer"
	TypeSupplier = "Supplier"
)

// fuzzyThreshold is the minimum similarity for a fuzzy match. Kept high so
// a bad guess doesn't silently attach the wrong party.
const fuzzyThreshold = 0.85

// Match is a resolved party assignment.
type Match struct {
	PartyType string
	Party     string
}

// Resolver resolves a counterparty name and description to a party.
// Resolution is optional enrichment: a nil result is a normal outcome.
type Resolver interface {
	Resolve(counterparty, description string) *Match
}

// Entry is one directory member.
type Entry struct {
	// Name is the party's identifier in the ledger system.
	Name string `yaml:"name"`
	// DisplayName is the party's human-readable name.
	DisplayName string `yaml:"display_name"`
	// BankAlias is the exact name this party appears under in bank
	// statements, when it differs from the display name.
	BankAlias string `yaml:"bank_alias,omitempty"`
}

// directoryFile is the on-disk YAML layout.
type directoryFile struct {
	Customers []Entry `yaml:"customers"`
	Suppliers []Entry `yaml:"suppliers"`
}

// Directory is a YAML-backed Resolver.
type Directory struct {
	customers []Entry
	suppliers []Entry
	logger    logging.Logger
}

// Load reads the party directory from a YAML file.
func Load(path string, logger logging.Logger) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read party directory: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse party directory %s: %w", path, err)
	}

	logger.Debug("Loaded party directory",
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: "customers", Value: len(file.Customers)},
		logging.Field{Key: "suppliers", Value: len(file.Suppliers)})

	return &Directory{
		customers: file.Customers,
		suppliers: file.Suppliers,
		logger:    logger,
	}, nil
}

// NewDirectory builds a Directory from in-memory entries, mainly for tests.
func NewDirectory(customers, suppliers []Entry, logger logging.Logger) *Directory {
	return &Directory{customers: customers, suppliers: suppliers, logger: logger}
}

// Resolve tries the structured counterparty name first and the free-text
// description second. Matching ladder per candidate text: exact bank alias,
// then substring on the display name, then fuzzy similarity.
func (d *Directory) Resolve(counterparty, description string) *Match {
	for _, text := range []string{counterparty, description} {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if m := d.exactAlias(text); m != nil {
			return m
		}
		if m := d.substring(text); m != nil {
			return m
		}
		if m := d.fuzzy(text); m != nil {
			return m
		}
	}
	return nil
}

// exactAlias matches the candidate text against bank aliases,
// case-insensitively. Customers win over suppliers, matching how the
// original master data is searched.
func (d *Directory) exactAlias(text string) *Match {
	lower := strings.ToLower(text)
	for _, e := range d.customers {
		if e.BankAlias != "" && strings.ToLower(e.BankAlias) == lower {
			return &Match{PartyType: TypeCustomer, Party: e.Name}
		}
	}
	for _, e := range d.suppliers {
		if e.BankAlias != "" && strings.ToLower(e.BankAlias) == lower {
			return &Match{PartyType: TypeSupplier, Party: e.Name}
		}
	}
	return nil
}

// substring matches when a party's display name or alias appears inside the
// candidate text.
func (d *Directory) substring(text string) *Match {
	lower := strings.ToLower(text)
	for _, e := range d.customers {
		if containsName(lower, e) {
			return &Match{PartyType: TypeCustomer, Party: e.Name}
		}
	}
	for _, e := range d.suppliers {
		if containsName(lower, e) {
			return &Match{PartyType: TypeSupplier, Party: e.Name}
		}
	}
	return nil
}

func containsName(lowerText string, e Entry) bool {
	if e.DisplayName != "" && strings.Contains(lowerText, strings.ToLower(e.DisplayName)) {
		return true
	}
	if e.BankAlias != "" && strings.Contains(lowerText, strings.ToLower(e.BankAlias)) {
		return true
	}
	return false
}

// fuzzy picks the best Levenshtein similarity above the threshold.
func (d *Directory) fuzzy(text string) *Match {
	var best *Match
	bestScore := fuzzyThreshold

	consider := func(e Entry, partyType string) {
		name := e.DisplayName
		if name == "" {
			name = e.BankAlias
		}
		if name == "" {
			return
		}
		score := similarity(strings.ToLower(name), strings.ToLower(text))
		if score > bestScore {
			bestScore = score
			best = &Match{PartyType: partyType, Party: e.Name}
		}
	}

	for _, e := range d.customers {
		consider(e, TypeCustomer)
	}
	for _, e := range d.suppliers {
		consider(e, TypeSupplier)
	}
	return best
}

// similarity converts a Levenshtein distance into a 0..1 ratio.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
