package api

import (
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/pkg/llm"
	"github.com/papercomputeco/voxrelay/pkg/storage"
)

// CacheSummary describes one named cache.
type CacheSummary struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// CachesResponse lists every named cache.
type CachesResponse struct {
	Caches []CacheSummary `json:"caches"`
}

// CacheResponse lists the URLs stored in one cache.
type CacheResponse struct {
	Name string   `json:"name"`
	Keys []string `json:"keys"`
}

// EntryResponse describes a stored entry without its body.
type EntryResponse struct {
	URL         string    `json:"url"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int       `json:"size"`
	StoredAt    time.Time `json:"stored_at"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListCaches returns every cache with its entry count.
func (s *Server) handleListCaches(c *fiber.Ctx) error {
	ctx := c.UserContext()

	names, err := s.driver.Caches(ctx)
	if err != nil {
		s.logger.Error("failed to list caches", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list caches"})
	}

	resp := CachesResponse{Caches: make([]CacheSummary, 0, len(names))}
	for _, name := range names {
		keys, err := s.driver.Keys(ctx, name)
		var nf storage.NotFoundError
		if errors.As(err, &nf) {
			// Deleted since Caches was read.
			continue
		}
		if err != nil {
			s.logger.Error("failed to list cache keys", zap.String("cache", name), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list caches"})
		}
		resp.Caches = append(resp.Caches, CacheSummary{Name: name, Entries: len(keys)})
	}

	return c.JSON(resp)
}

// handleGetCache returns the URLs stored in one cache.
func (s *Server) handleGetCache(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "cache name required"})
	}

	keys, err := s.driver.Keys(c.UserContext(), name)
	if err != nil {
		return s.storageError(c, err)
	}

	return c.JSON(CacheResponse{Name: name, Keys: keys})
}

// handleGetEntry returns metadata for the entry stored under ?url=.
func (s *Server) handleGetEntry(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "cache name required"})
	}

	target := c.Query("url")
	if target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "url query parameter required"})
	}

	entry, err := s.driver.Match(c.UserContext(), name, target)
	if err != nil {
		return s.storageError(c, err)
	}

	return c.JSON(EntryResponse{
		URL:         entry.URL,
		Status:      entry.Status,
		ContentType: entry.ContentType(),
		Size:        len(entry.Body),
		StoredAt:    entry.StoredAt,
	})
}

// handleDeleteCache drops a cache, the equivalent of a cache-name change
// cleaning up the previous version.
func (s *Server) handleDeleteCache(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "cache name required"})
	}

	deleted, err := s.driver.Delete(c.UserContext(), name)
	if err != nil {
		return s.storageError(c, err)
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "cache not found"})
	}

	s.logger.Info("deleted cache", zap.String("cache", name))
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) storageError(c *fiber.Ctx, err error) error {
	var nf storage.NotFoundError
	if errors.As(err, &nf) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: nf.Error()})
	}

	s.logger.Error("storage error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "storage error"})
}
