package offline

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
)

const (
	// HeaderServedBy marks responses that did not come from the network.
	HeaderServedBy = "X-Served-By"
	// ServedByCache flags a cached API response.
	ServedByCache = "ServiceWorker-Cache"
	// ServedBySynthetic flags a generated offline response.
	ServedBySynthetic = "ServiceWorker-Offline"
)

// Strategy names the handling applied to a GET request.
type Strategy string

const (
	StrategyPassThrough Strategy = "pass-through"
	StrategyAPI         Strategy = "api"
	StrategyCritical    Strategy = "critical"
	StrategyOther       Strategy = "other"
)

// Classify returns the strategy Fetch applies to req.
func (c *Controller) Classify(req *Request) Strategy {
	if req.Method != http.MethodGet {
		return StrategyPassThrough
	}
	path := req.Path()
	switch {
	case strings.HasPrefix(path, c.opts.APIPrefix):
		return StrategyAPI
	case c.isCritical(path):
		return StrategyCritical
	default:
		return StrategyOther
	}
}

// Fetch answers an intercepted request. Non-GET requests go straight to the
// network and their errors propagate; GET requests always get a response.
func (c *Controller) Fetch(ctx context.Context, req *Request) (*Response, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	strategy := c.Classify(req)
	if strategy == StrategyPassThrough {
		return c.network.Fetch(ctx, req)
	}

	ctx, span := c.tracer.Start(ctx, "offline.fetch", trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.Path()),
		attribute.String("offline.strategy", string(strategy)),
	))
	defer span.End()

	var resp *Response
	switch strategy {
	case StrategyAPI:
		resp = c.networkFirstAPI(ctx, req)
	case StrategyCritical:
		resp = c.cacheFirst(ctx, req)
	default:
		resp = c.networkFirst(ctx, req)
	}
	span.SetAttributes(
		attribute.String("offline.source", string(resp.Source)),
		attribute.Int("http.status_code", resp.Status),
	)
	return resp, nil
}

func (c *Controller) networkFirstAPI(ctx context.Context, req *Request) *Response {
	key := req.Key()
	resp, err := c.fetchNetwork(ctx, req)
	if err == nil {
		c.storeAsync(ctx, c.opts.APICache, key, resp)
		return resp
	}
	c.logger.Debug("api network failed, trying cache", logger.F("key", key), logger.F("error", err))
	if cached, ok := c.match(ctx, c.opts.APICache, key); ok {
		return cached.WithHeader(HeaderServedBy, ServedByCache)
	}
	return offlineJSON(req.Path())
}

func (c *Controller) cacheFirst(ctx context.Context, req *Request) *Response {
	key := req.Key()
	if cached, ok := c.match(ctx, c.opts.CriticalCache, key); ok {
		return cached
	}
	resp, err := c.fetchNetwork(ctx, req)
	if err == nil {
		c.storeAsync(ctx, c.opts.CriticalCache, key, resp)
		return resp
	}
	c.logger.Debug("critical resource unavailable", logger.F("key", key), logger.F("error", err))
	if page, ok := c.match(ctx, c.opts.CriticalCache, Key(http.MethodGet, c.opts.OfflinePage)); ok {
		return page
	}
	return c.offlineHTML(ctx, req)
}

func (c *Controller) networkFirst(ctx context.Context, req *Request) *Response {
	key := req.Key()
	resp, err := c.fetchNetwork(ctx, req)
	if err == nil {
		c.storeAsync(ctx, c.opts.CriticalCache, key, resp)
		return resp
	}
	if cached, ok := c.match(ctx, c.opts.CriticalCache, key); ok {
		return cached
	}
	c.logger.Debug("resource unavailable offline", logger.F("key", key), logger.F("error", err))
	if req.Destination == DestinationImage {
		return offlineImage()
	}
	return c.offlineHTML(ctx, req)
}
