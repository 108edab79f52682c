package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saegim/proofdesk/internal/domain"
)

// ShortLinkResolver resolves a short code to its target, recording the click.
type ShortLinkResolver interface {
	RecordClick(ctx context.Context, code string) (string, error)
}

// ShortLinkHandler serves the unauthenticated public redirect. This is the
// only route reachable without a bearer token or admin key.
type ShortLinkHandler struct {
	shortLinks ShortLinkResolver
}

func NewShortLinkHandler(shortLinks ShortLinkResolver) (*ShortLinkHandler, error) {
	if shortLinks == nil {
		return nil, fmt.Errorf("short link service is required")
	}
	return &ShortLinkHandler{shortLinks: shortLinks}, nil
}

func RegisterShortLinkRoutes(router fiber.Router, h *ShortLinkHandler) {
	router.Get("/s/:code", h.Redirect)
}

func (h *ShortLinkHandler) Redirect(c *fiber.Ctx) error {
	code := strings.ToLower(strings.TrimSpace(c.Params("code")))
	if code == "" {
		return fiber.NewError(fiber.StatusNotFound, "unknown link")
	}

	target, err := h.shortLinks.RecordClick(c.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrShortLinkNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "unknown link")
		}
		return err
	}

	return c.Redirect(target, fiber.StatusFound)
}
