package assetcache

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/pkg/llm"
)

// CacheStatusHeader marks gateway responses as HIT or MISS.
const CacheStatusHeader = "X-Voxrelay-Cache"

// Gateway serves every request through a Worker.
type Gateway struct {
	worker *Worker
	logger *zap.Logger
}

// NewGateway creates a gateway for w.
func NewGateway(w *Worker, logger *zap.Logger) *Gateway {
	return &Gateway{worker: w, logger: logger}
}

// Handle is a fiber handler forwarding the request through the worker.
func (g *Gateway) Handle(c *fiber.Ctx) error {
	req := &Request{
		Method: c.Method(),
		URL:    c.OriginalURL(),
		Header: make(map[string][]string),
	}
	if body := c.Body(); len(body) > 0 {
		req.Body = append([]byte(nil), body...)
	}
	for k, v := range c.GetReqHeaders() {
		switch k {
		case fiber.HeaderHost, fiber.HeaderConnection, fiber.HeaderContentLength, fiber.HeaderAcceptEncoding:
			continue
		}
		req.Header[k] = v
	}

	resp, err := g.worker.Fetch(c.UserContext(), req)
	if err != nil {
		g.logger.Error("gateway fetch failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "upstream request failed"})
	}

	for k, vs := range resp.Header {
		switch k {
		case fiber.HeaderContentLength, fiber.HeaderContentEncoding, fiber.HeaderTransferEncoding, fiber.HeaderConnection:
			continue
		}
		for _, v := range vs {
			c.Response().Header.Add(k, v)
		}
	}

	if resp.FromCache {
		c.Set(CacheStatusHeader, "HIT")
	} else {
		c.Set(CacheStatusHeader, "MISS")
	}

	return c.Status(resp.Status).Send(resp.Body)
}

// NewGatewayApp builds a fiber app that routes everything through the gateway.
func NewGatewayApp(w *Worker, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.All("/*", NewGateway(w, logger).Handle)
	return app
}
