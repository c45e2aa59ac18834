package server

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"meetsync/internal/interval"
	"meetsync/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	defaultWindowDays      = 7
	defaultDurationMinutes = 60
)

// currentUserID returns the authenticated user set by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	return c.Locals("userID").(uint)
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseWindow reads the from/to query parameters as RFC 3339 timestamps.
// Both default so a bare GET yields the next week of availability.
func (s *Server) parseWindow(c *fiber.Ctx) (interval.Span, error) {
	now := time.Now().UTC()
	window := interval.Span{Start: now, End: now.AddDate(0, 0, defaultWindowDays)}

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = models.RespondWithError(c,
				models.NewValidationError("Invalid 'from' timestamp, expected RFC 3339"))
			return interval.Span{}, errResponseWritten
		}
		window.Start = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = models.RespondWithError(c,
				models.NewValidationError("Invalid 'to' timestamp, expected RFC 3339"))
			return interval.Span{}, errResponseWritten
		}
		window.End = t
	}
	return window, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "requestId" -> "request ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}
