// Package models defines the catalog and matching types shared across packages.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Product is one catalog entry. Description is the text that gets embedded.
type Product struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"desc"`
	Tags        []string `json:"tags"`
}

// UnmarshalJSON accepts "description" as an alias of "desc".
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	aux := struct {
		*plain
		LongDescription string `json:"description"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.Description == "" {
		p.Description = aux.LongDescription
	}
	return nil
}

// Key is the product ID as a store item key.
func (p *Product) Key() string {
	return strconv.Itoa(p.ID)
}

// Metadata is what gets published alongside the product vector. Tags are a JSON array so
// tags containing commas survive the round trip.
func (p *Product) Metadata() map[string]string {
	tags, _ := json.Marshal(p.Tags)
	return map[string]string{
		"name": p.Name,
		"tags": string(tags),
		"desc": p.Description,
	}
}

// ProductFromMetadata rebuilds a product from its ID and published metadata.
func ProductFromMetadata(id int, meta map[string]string) (*Product, error) {
	p := &Product{
		ID:          id,
		Name:        meta["name"],
		Description: meta["desc"],
	}
	if tags := meta["tags"]; tags != "" && tags != "null" {
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, fmt.Errorf("product %d: decode tags: %w", id, err)
		}
	}
	return p, nil
}

// Validate checks required fields and normalises tags (trimmed, empties dropped).
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product %d: name is empty", p.ID)
	}
	if strings.TrimSpace(p.Description) == "" {
		return fmt.Errorf("product %d: description is empty", p.ID)
	}
	tags := p.Tags[:0]
	for _, t := range p.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	p.Tags = tags
	return nil
}
