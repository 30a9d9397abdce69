// Package config loads the campaign configuration file: the instrument
// set, the base strategy parameters and the sweep space. Connection
// strings and endpoints come from flags and the environment, not from
// this file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/optimizer"
)

// ErrInvalid is returned when the campaign config fails validation.
var ErrInvalid = errors.New("invalid campaign config")

// Campaign is the on-disk campaign definition.
type Campaign struct {
	Symbols []string `yaml:"symbols"`

	// Base carries the defaults every candidate inherits; Space enumerates
	// the swept fields.
	Base  domain.StrategyConfig `yaml:"base"`
	Space optimizer.ParamSpace  `yaml:"space"`

	Scoring     string `yaml:"scoring"`
	Parallelism int    `yaml:"parallelism"`

	// Interval is the kline interval requested from the caching proxy.
	Interval string `yaml:"interval"`
}

// Load reads and validates a campaign config file.
func Load(path string) (*Campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read campaign config: %w", err)
	}

	var c Campaign
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse campaign config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate fails fast before any simulation starts.
func (c *Campaign) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("%w: at least one symbol is required", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(c.Symbols))
	for _, symbol := range c.Symbols {
		if symbol == "" {
			return fmt.Errorf("%w: empty symbol", ErrInvalid)
		}
		if _, dup := seen[symbol]; dup {
			return fmt.Errorf("%w: duplicate symbol %s", ErrInvalid, symbol)
		}
		seen[symbol] = struct{}{}
	}

	if _, err := optimizer.ParsePolicy(c.Scoring); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must not be negative", ErrInvalid)
	}
	if c.Interval == "" {
		c.Interval = "1h"
	}

	// Every candidate the space expands from the base must be a valid
	// strategy config; checking the first symbol's expansion up front
	// keeps sweep-time disqualifications to data problems only.
	base := c.Base
	base.Symbol = c.Symbols[0]
	for _, candidate := range c.Space.Candidates(base) {
		if err := candidate.Validate(); err != nil {
			return fmt.Errorf("%w: candidate %s: %v", ErrInvalid, candidate.ID(), err)
		}
	}

	return nil
}

// Policy returns the parsed scoring policy. Call after Validate.
func (c *Campaign) Policy() optimizer.Policy {
	p, _ := optimizer.ParsePolicy(c.Scoring)
	return p
}
