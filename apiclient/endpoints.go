package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// SearchMedicines calls GET /api/medicines?q=
func (c *Client) SearchMedicines(ctx context.Context, query string) ([]MedicineResult, error) {
	var resp MedicinesResponse
	if err := c.call(ctx, "medicines", http.MethodGet, "/api/medicines?q="+url.QueryEscape(query), nil, false, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Equivalents calls GET /api/medicines/equivalents?q=
func (c *Client) Equivalents(ctx context.Context, query string) (*EquivalentsResponse, error) {
	var resp EquivalentsResponse
	if err := c.call(ctx, "equivalents", http.MethodGet, "/api/medicines/equivalents?q="+url.QueryEscape(query), nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login calls POST /api/auth/login. Blank fields fail with *ValidationError
// before any request is sent.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &ValidationError{Field: "email", Message: "Email is required"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Message: "Password is required"}
	}

	var resp LoginResponse
	if err := c.call(ctx, "login", http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: password}, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Inventory calls GET /api/inventory with the bearer token
func (c *Client) Inventory(ctx context.Context) ([]InventoryItem, error) {
	var resp InventoryResponse
	if err := c.call(ctx, "inventory", http.MethodGet, "/api/inventory", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// UpsertInventory calls POST /api/inventory/upsert with the bearer token
func (c *Client) UpsertInventory(ctx context.Context, item UpsertRequest) (*InventoryItem, error) {
	var resp InventoryItem
	if err := c.call(ctx, "inventory_upsert", http.MethodPost, "/api/inventory/upsert", item, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping issues GET on the base URL and reports whether the backend answered at
// all. Any HTTP status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	err = c.Do(ctx, req, nil)
	if StatusCode(err) != 0 {
		return nil
	}
	return err
}
