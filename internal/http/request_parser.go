// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// path parameters, JSON or form-encoded bodies and activity counts.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leaderboard/internal/core"
)

// maxBodyBytes caps request bodies; a full week of counts is far smaller.
const maxBodyBytes = 64 << 10

// errMalformedBody is returned when a body is neither valid JSON nor form data.
var errMalformedBody = errors.New("malformed request body")

// ParseWeekParam resolves the {week} path parameter. Any YYYY-MM-DD date is
// accepted and mapped to the Monday of its week; "current" means the week
// containing now.
func ParseWeekParam(r *http.Request, now time.Time) (core.WeekKey, error) {
	raw := strings.TrimSpace(r.PathValue("week"))
	if raw == "current" {
		return core.WeekKeyOf(now), nil
	}
	return core.ParseWeekKey(raw)
}

// MemberParam returns the {name} path parameter, already unescaped by the mux.
// Member names match exactly, so surrounding whitespace is kept.
func MemberParam(r *http.Request) string {
	return stripControl(r.PathValue("name"))
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, p.err)
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(body, "{") || strings.Contains(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = fmt.Errorf("%w: %v", errMalformedBody, err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, p.err)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return stripControl(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return stripControl(p.formData.Get(key))
	}
	return ""
}

// Counts extracts activity counts. JSON bodies carry them under "counts";
// form bodies use one field per category. Counts must be whole numbers.
func (p *RequestBodyParser) Counts() (core.ActivityCount, error) {
	if err := p.Parse(); err != nil {
		return nil, err
	}
	counts := core.ActivityCount{}

	if p.jsonData != nil {
		raw, ok := p.jsonData["counts"]
		if !ok {
			return nil, fmt.Errorf("%w: missing \"counts\" object", errMalformedBody)
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: \"counts\" must be an object", errMalformedBody)
		}
		for key, v := range obj {
			f, ok := v.(float64)
			if !ok || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
				return nil, fmt.Errorf("%w: %q is not a whole number", core.ErrInvalidCount, key)
			}
			counts[sanitizeInput(key)] = int(f)
		}
		return counts, nil
	}

	for key := range p.formData {
		v := strings.TrimSpace(p.formData.Get(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a whole number", core.ErrInvalidCount, key)
		}
		counts[sanitizeInput(key)] = n
	}
	return counts, nil
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput strips control characters and trims whitespace. Used for
// category keys, which are matched against the registry.
func sanitizeInput(s string) string {
	return strings.TrimSpace(stripControl(s))
}

// stripControl removes control characters except tab, newline and carriage
// return.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
