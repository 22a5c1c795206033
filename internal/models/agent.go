package models

import (
	"time"
)

// Agent is a persona that can reply to a user message. Built-in agents and
// user-created custom agents share this shape once merged into a roster.
type Agent struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Avatar       string  `json:"avatar"`
	Color        string  `json:"color,omitempty"`
	Personality  string  `json:"personality"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
	ResponseRate float64 `json:"responseRate"`
	IsCustom     bool    `json:"isCustom"`
}

// Defaults applied to custom agents created without these fields.
const (
	DefaultCustomAvatar       = "🤖"
	DefaultCustomColor        = "bg-indigo-500"
	DefaultCustomResponseRate = 0.8
)

// CustomAgent is the stored form of a user-authored agent.
type CustomAgent struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar"`
	Color        string    `json:"color"`
	Personality  string    `json:"personality"`
	SystemPrompt *string   `json:"system_prompt,omitempty"`
	ResponseRate float64   `json:"response_rate"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToAgent maps the storage record onto the common Agent shape.
func (c CustomAgent) ToAgent() Agent {
	a := Agent{
		ID:           c.ID,
		Name:         c.Name,
		Avatar:       c.Avatar,
		Color:        c.Color,
		Personality:  c.Personality,
		ResponseRate: c.ResponseRate,
		IsCustom:     true,
	}
	if c.SystemPrompt != nil {
		a.SystemPrompt = *c.SystemPrompt
	}
	if a.Color == "" {
		a.Color = DefaultCustomColor
	}
	return a
}

// ApplyDefaults fills the optional presentation fields of a new custom agent.
func (c *CustomAgent) ApplyDefaults() {
	if c.Avatar == "" {
		c.Avatar = DefaultCustomAvatar
	}
	if c.Color == "" {
		c.Color = DefaultCustomColor
	}
	if c.ResponseRate == 0 {
		c.ResponseRate = DefaultCustomResponseRate
	}
}
