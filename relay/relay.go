// Package relay provides the chat relay endpoint: it forwards one text message
// to the hosted generative language API with a server-held credential and
// returns a normalized reply.
package relay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/pkg/eventstream/nop"
	"github.com/papercomputeco/voxrelay/pkg/llm"
	"github.com/papercomputeco/voxrelay/pkg/llm/provider"
	"github.com/papercomputeco/voxrelay/pkg/metrics"
	"github.com/papercomputeco/voxrelay/relay/worker"
)

// ChatPath is the relay endpoint.
const ChatPath = "/api/chat"

// Error messages returned to clients.
const (
	errMsgInvalidMessage = "Message is required and must be a string"
	errMsgEmptyReply     = "Empty response from AI model"
	errMsgInternal       = "Internal server error"
)

// Relay is the chat relay server.
type Relay struct {
	config     Config
	prov       provider.Provider
	keySource  func() string
	workerPool *worker.Pool
	metrics    *metrics.Metrics
	logger     *zap.Logger
	httpClient *http.Client
	server     *fiber.App
	now        func() time.Time
}

// New creates a new Relay.
// Returns an error if the configured provider type is not recognized.
func New(config Config, logger *zap.Logger) (*Relay, error) {
	if config.Provider == "" {
		config.Provider = provider.Gemini
	}

	prov, err := provider.New(config.Provider, config.UpstreamURL, config.Model)
	if err != nil {
		return nil, fmt.Errorf("could not create new provider: %w", err)
	}

	keySource := config.KeySource
	if keySource == nil {
		keySource = EnvKeySource
	}

	publisher := config.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	wp, err := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Metrics:   config.Metrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	// Add compression middleware to handle responses
	app.Use(compress.New())

	r := &Relay{
		config:     config,
		prov:       prov,
		keySource:  keySource,
		workerPool: wp,
		metrics:    config.Metrics,
		logger:     logger,
		server:     app,
		now:        time.Now,
		// No client timeout: an upstream call lives as long as the inbound request.
		httpClient: &http.Client{},
	}

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	app.Post(ChatPath, r.handleChat)

	if config.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}

	if config.StaticDir != "" {
		app.Static("/", config.StaticDir)
	}

	return r, nil
}

// App returns the underlying fiber app.
func (r *Relay) App() *fiber.App {
	return r.server
}

// Run starts the relay server on the configured listening address
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		zap.String("listen", r.config.ListenAddr),
		zap.String("provider", r.prov.Name()),
		zap.String("model", r.prov.Model()),
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		zap.String("listen", listener.Addr().String()),
		zap.String("provider", r.prov.Name()),
		zap.String("model", r.prov.Model()),
	)

	return r.server.Listener(listener)
}

// Close gracefully shuts down the server, then drains the worker pool.
func (r *Relay) Close() error {
	err := r.server.Shutdown()
	r.workerPool.Close()
	return err
}

// handleChat relays one message upstream and normalizes the reply.
func (r *Relay) handleChat(c *fiber.Ctx) error {
	ex := &llm.Exchange{
		Provider:  r.prov.Name(),
		Model:     r.prov.Model(),
		StartedAt: r.now(),
	}

	req, err := llm.ParseChatRequest(c.Body())
	if err != nil {
		r.logger.Debug("rejected chat request", zap.Error(err))
		return r.fail(c, ex, fiber.StatusBadRequest, errMsgInvalidMessage)
	}
	ex.Message = req.Message

	r.logger.Info("received message", zap.String("message", req.Message))

	apiKey := r.keySource()
	if apiKey == "" {
		r.logger.Error("upstream API key not configured", zap.String("env", APIKeyEnv))
		return r.fail(c, ex, fiber.StatusInternalServerError, r.prov.Label()+" API key not configured")
	}

	payload, err := r.prov.EncodeRequest(req.Message)
	if err != nil {
		r.logger.Error("failed to encode upstream request", zap.Error(err))
		return r.fail(c, ex, fiber.StatusInternalServerError, errMsgInternal)
	}

	httpReq, err := http.NewRequestWithContext(c.UserContext(), http.MethodPost, r.prov.Endpoint(apiKey), bytes.NewReader(payload))
	if err != nil {
		r.logger.Error("failed to create upstream request", zap.Error(err))
		return r.fail(c, ex, fiber.StatusInternalServerError, errMsgInternal)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	upstreamStart := time.Now()
	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		r.logger.Error("upstream request failed", zap.Error(redactKey(err)))
		return r.fail(c, ex, fiber.StatusInternalServerError, errMsgInternal)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	r.metrics.ObserveUpstream(time.Since(upstreamStart).Seconds())
	if err != nil {
		r.logger.Error("failed to read upstream response", zap.Error(err))
		return r.fail(c, ex, fiber.StatusInternalServerError, errMsgInternal)
	}

	r.logger.Info("upstream responded",
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", time.Since(upstreamStart)),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		r.logger.Error("upstream returned error",
			zap.Int("status", httpResp.StatusCode),
			zap.String("body", string(respBody)),
		)
		msg := fmt.Sprintf("%s API error: %d", r.prov.Label(), httpResp.StatusCode)
		return r.fail(c, ex, httpResp.StatusCode, msg)
	}

	r.logger.Debug("upstream payload", zap.ByteString("body", respBody))

	text, err := r.prov.DecodeReply(respBody)
	if err != nil {
		r.logger.Error("failed to decode upstream response", zap.Error(err))
		return r.fail(c, ex, fiber.StatusInternalServerError, errMsgInternal)
	}

	reply := strings.TrimSpace(text)
	r.logger.Info("extracted reply", zap.String("reply", reply))
	if reply == "" {
		return r.fail(c, ex, fiber.StatusInternalServerError, errMsgEmptyReply)
	}

	ex.Reply = reply
	resp := llm.NewChatResponse(reply, r.prov.Model(), r.now())
	r.complete(c, ex, fiber.StatusOK)

	return c.Status(fiber.StatusOK).JSON(resp)
}

// fail records a failed exchange and writes the error body.
func (r *Relay) fail(c *fiber.Ctx, ex *llm.Exchange, status int, msg string) error {
	ex.Error = msg
	r.complete(c, ex, status)
	return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
}

// complete observes metrics and enqueues the exchange for publishing.
func (r *Relay) complete(c *fiber.Ctx, ex *llm.Exchange, status int) {
	ex.Status = status
	ex.CompletedAt = r.now()
	r.metrics.ObserveRelay(status, ex.Duration().Seconds())

	// Non-blocking enqueue for async publishing
	r.workerPool.Enqueue(worker.Job{
		Path:     strings.Clone(c.Path()),
		Exchange: ex,
	})
}

// redactKey strips the query string, which carries the credential, from
// transport errors before they are logged.
func redactKey(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, perr := url.Parse(urlErr.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: urlErr.Op, URL: u.String(), Err: urlErr.Err}
		}
	}
	return err
}
