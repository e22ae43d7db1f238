package handlers

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// UserIDHeader carries the caller identity used for saved selections.
const UserIDHeader = "X-User-ID"

// userID falls back to the client address when no identity header is sent.
func userID(c *fiber.Ctx) string {
	if id := strings.TrimSpace(c.Get(UserIDHeader)); id != "" {
		return id
	}
	return c.IP()
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	val := c.Query(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// queryDay parses an optional YYYY-MM-DD parameter.
func queryDay(c *fiber.Ctx, key string) (*time.Time, error) {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil, nil
	}
	day, err := domain.ParseDay(val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date, want YYYY-MM-DD", map[string]any{key: val})
	}
	return &day, nil
}

// queryOwners accepts repeated or comma-separated owner parameters.
func queryOwners(c *fiber.Ctx) []string {
	var owners []string
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		if string(key) != "owner" {
			return
		}
		for _, part := range strings.Split(string(value), ",") {
			if part = strings.TrimSpace(part); part != "" {
				owners = append(owners, part)
			}
		}
	})
	return owners
}

// pathParam returns a decoded route parameter.
func pathParam(c *fiber.Ctx, key string) string {
	raw := c.Params(key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
