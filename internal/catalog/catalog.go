package catalog

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Package describes one purchasable entitlement package. Pricing is
// server-authoritative; client-supplied amounts are never trusted.
type Package struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	AmountCents int64  `yaml:"amount-cents"`
	Currency    string `yaml:"currency"`
	Credits     int64  `yaml:"credits"`
	Unlimited   bool   `yaml:"unlimited"`
	Interval    string `yaml:"interval"`
}

// CheckoutMode returns the provider checkout mode for the package.
func (p Package) CheckoutMode() string {
	if p.Unlimited && p.Interval != "" {
		return "subscription"
	}
	return "payment"
}

// Amount returns the package price in major units.
func (p Package) Amount() float64 {
	return float64(p.AmountCents) / 100
}

// Prompt describes one curated generation prompt.
type Prompt struct {
	ID          int    `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Prompt      string `yaml:"prompt"`
	Category    string `yaml:"category"`
}

// Snapshot is an immutable view of both catalogs. Lookups never mutate it;
// reloads build a fresh snapshot and swap the pointer.
type Snapshot struct {
	packages     []Package
	packagesByID map[string]Package
	prompts      []Prompt
	promptsByID  map[int]Prompt
	categories   []string
	promptsByCat map[string][]Prompt
}

// NewSnapshot validates the catalogs and builds an immutable snapshot.
func NewSnapshot(packages []Package, prompts []Prompt) (*Snapshot, error) {
	snap := &Snapshot{
		packages:     make([]Package, 0, len(packages)),
		packagesByID: make(map[string]Package, len(packages)),
		prompts:      make([]Prompt, 0, len(prompts)),
		promptsByID:  make(map[int]Prompt, len(prompts)),
		promptsByCat: make(map[string][]Prompt),
	}

	for _, pkg := range packages {
		id := strings.TrimSpace(pkg.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog: package with empty id")
		}
		if _, exists := snap.packagesByID[id]; exists {
			return nil, fmt.Errorf("catalog: duplicate package id %q", id)
		}
		if pkg.AmountCents <= 0 {
			return nil, fmt.Errorf("catalog: package %q has non-positive amount", id)
		}
		if !pkg.Unlimited && pkg.Credits <= 0 {
			return nil, fmt.Errorf("catalog: package %q grants nothing", id)
		}
		if strings.TrimSpace(pkg.Currency) == "" {
			pkg.Currency = "usd"
		}
		pkg.ID = id
		snap.packages = append(snap.packages, pkg)
		snap.packagesByID[id] = pkg
	}

	for _, prompt := range prompts {
		if prompt.ID <= 0 {
			return nil, fmt.Errorf("catalog: prompt with non-positive id")
		}
		if _, exists := snap.promptsByID[prompt.ID]; exists {
			return nil, fmt.Errorf("catalog: duplicate prompt id %d", prompt.ID)
		}
		if strings.TrimSpace(prompt.Prompt) == "" {
			return nil, fmt.Errorf("catalog: prompt %d has empty text", prompt.ID)
		}
		snap.prompts = append(snap.prompts, prompt)
		snap.promptsByID[prompt.ID] = prompt
		category := strings.TrimSpace(prompt.Category)
		if category != "" {
			if _, seen := snap.promptsByCat[category]; !seen {
				snap.categories = append(snap.categories, category)
			}
			snap.promptsByCat[category] = append(snap.promptsByCat[category], prompt)
		}
	}

	return snap, nil
}

// Packages returns the packages in catalog order.
func (s *Snapshot) Packages() []Package {
	return s.packages
}

// PackageByID returns the package with the given id.
func (s *Snapshot) PackageByID(id string) (Package, bool) {
	pkg, ok := s.packagesByID[strings.TrimSpace(id)]
	return pkg, ok
}

// Prompts returns the prompts in catalog order.
func (s *Snapshot) Prompts() []Prompt {
	return s.prompts
}

// PromptByID returns the prompt with the given id.
func (s *Snapshot) PromptByID(id int) (Prompt, bool) {
	prompt, ok := s.promptsByID[id]
	return prompt, ok
}

// Categories returns the category names in first-appearance order.
func (s *Snapshot) Categories() []string {
	return s.categories
}

// PromptsByCategory returns the prompts in one category.
func (s *Snapshot) PromptsByCategory(category string) ([]Prompt, bool) {
	prompts, ok := s.promptsByCat[strings.TrimSpace(category)]
	return prompts, ok
}

// Store holds the current snapshot behind an atomic pointer so readers never
// block while a reload swaps catalogs.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore constructs a Store seeded with the snapshot.
func NewStore(snap *Snapshot) *Store {
	s := &Store{}
	if snap == nil {
		snap, _ = NewSnapshot(nil, nil)
	}
	s.current.Store(snap)
	return s
}

// Snapshot returns the current immutable snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Swap replaces the current snapshot.
func (s *Store) Swap(next *Snapshot) {
	if next == nil {
		return
	}
	s.current.Store(next)
}
