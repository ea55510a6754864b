package apiclient

import (
	"errors"
	"fmt"
	"math"
)

// MedicineResult is one medicine as returned by the backend. Values are never
// mutated after decoding.
type MedicineResult struct {
	BrandName   string   `json:"brandName,omitempty"`
	GenericName string   `json:"genericName,omitempty"`
	Strength    string   `json:"strength,omitempty"`
	Form        string   `json:"form,omitempty"`
	IsGeneric   bool     `json:"isGeneric"`
	MRP         *float64 `json:"mrp,omitempty"`
}

// Validate rejects prices that are not finite non-negative numbers
func (m MedicineResult) Validate() error {
	if m.MRP != nil && (math.IsNaN(*m.MRP) || math.IsInf(*m.MRP, 0) || *m.MRP < 0) {
		return fmt.Errorf("invalid mrp %v", *m.MRP)
	}
	return nil
}

// MedicinesResponse is the body of GET /api/medicines
type MedicinesResponse struct {
	Results []MedicineResult `json:"results"`
}

func (r *MedicinesResponse) Validate() error {
	return validateResults(r.Results)
}

// EquivalentsResponse is the body of GET /api/medicines/equivalents
type EquivalentsResponse struct {
	Base    *MedicineResult  `json:"base"`
	Results []MedicineResult `json:"results"`
}

func (r *EquivalentsResponse) Validate() error {
	if r.Base != nil {
		if err := r.Base.Validate(); err != nil {
			return fmt.Errorf("base: %w", err)
		}
	}
	return validateResults(r.Results)
}

func validateResults(results []MedicineResult) error {
	for i, m := range results {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("results[%d]: %w", i, err)
		}
	}
	return nil
}

// User is the account summary returned on login
type User struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// LoginResponse is the body of POST /api/auth/login
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (r *LoginResponse) Validate() error {
	if r.Token == "" {
		return errors.New("missing token")
	}
	return nil
}

// InventoryItem is one row of the pharmacy inventory
type InventoryItem struct {
	ID          string `json:"id,omitempty"`
	BrandName   string `json:"brandName"`
	GenericName string `json:"genericName"`
	Strength    string `json:"strength"`
	Quantity    int    `json:"quantity"`
	Expiry      string `json:"expiry,omitempty"`
}

// InventoryResponse is the body of GET /api/inventory
type InventoryResponse struct {
	Items []InventoryItem `json:"items"`
}

// UpsertRequest is the body of POST /api/inventory/upsert
type UpsertRequest struct {
	BrandName   string `json:"brandName"`
	GenericName string `json:"genericName"`
	Strength    string `json:"strength"`
	Quantity    int    `json:"quantity"`
	Expiry      string `json:"expiry,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
