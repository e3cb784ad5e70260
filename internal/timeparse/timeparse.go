// Package timeparse turns operator time input into instants.
package timeparse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var compactClock = regexp.MustCompile(`(\d{1,2})(\d{2})(am|pm)`)

// Parser resolves natural-language times such as "tomorrow at 9pm" or
// "in 2 hours" in a named timezone.
type Parser struct {
	TimezoneMap map[string]string
	w           *when.Parser
}

// NewParser creates a Parser that knows the US timezone abbreviations.
func NewParser() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{
		TimezoneMap: map[string]string{
			"UTC": "UTC",
			"PST": "America/Los_Angeles",
			"PDT": "America/Los_Angeles",
			"MST": "America/Denver",
			"MDT": "America/Denver",
			"CST": "America/Chicago",
			"CDT": "America/Chicago",
			"EST": "America/New_York",
			"EDT": "America/New_York",
			"CET": "Europe/Zurich",
		},
		w: w,
	}
}

// Location resolves an abbreviation or IANA name.
func (p *Parser) Location(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	name := tz
	if full, ok := p.TimezoneMap[strings.ToUpper(tz)]; ok {
		name = full
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %s", tz)
	}
	return loc, nil
}

// ParseFuture parses input relative to now in tz and requires the result to
// lie after now. RFC 3339 timestamps are accepted as is.
func (p *Parser) ParseFuture(input, tz string, now time.Time) (time.Time, error) {
	loc, err := p.Location(tz)
	if err != nil {
		return time.Time{}, err
	}

	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(input)); err == nil {
		return checkFuture(t, now)
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.ReplaceAll(normalized, "today ", "today at ")
	normalized = compactClock.ReplaceAllString(normalized, "$1:$2 $3")

	r, err := p.w.Parse(normalized, now.In(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize time format: %s", input)
	}
	return checkFuture(r.Time.In(loc), now)
}

func checkFuture(t, now time.Time) (time.Time, error) {
	if !t.After(now) {
		return time.Time{}, fmt.Errorf("time must be in the future (parsed: %s, now: %s)", t.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	return t.UTC(), nil
}
