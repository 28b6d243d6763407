package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/interprelab/go-offline-cache/pkg/interfaces/cache"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
)

// EndpointResult records the outcome of one best-effort endpoint fetch.
type EndpointResult struct {
	Endpoint string `json:"endpoint"`
	Err      error  `json:"-"`
}

// OK reports whether the endpoint was fetched and stored.
func (r EndpointResult) OK() bool { return r.Err == nil }

func (r EndpointResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Endpoint string `json:"endpoint"`
		OK       bool   `json:"ok"`
		Error    string `json:"error,omitempty"`
	}{Endpoint: r.Endpoint, OK: r.OK()}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// InstallReport summarizes an install run.
type InstallReport struct {
	Resources []string         `json:"resources"`
	Endpoints []EndpointResult `json:"endpoints"`
}

// FailedEndpoints lists API endpoints that could not be pre-cached.
func (r InstallReport) FailedEndpoints() []string {
	return failed(r.Endpoints)
}

// ActivateReport lists the stale stores removed during activation.
type ActivateReport struct {
	Deleted []string `json:"deleted"`
}

// Install pre-caches the critical resources as one unit, then makes a best
// effort at snapshotting the critical API endpoints. On failure the
// controller becomes redundant and nothing from the resource batch is kept.
func (c *Controller) Install(ctx context.Context) (InstallReport, error) {
	ctx, span := c.tracer.Start(ctx, "offline.install")
	defer span.End()

	var report InstallReport
	c.setState(ctx, StateInstalling)

	fail := func(err error) (InstallReport, error) {
		span.RecordError(err)
		c.setState(ctx, StateRedundant)
		c.logger.Error("install failed", logger.F("error", err))
		return report, fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}

	store, err := c.storage.Open(ctx, c.opts.CriticalCache)
	if err != nil {
		return fail(fmt.Errorf("open %s: %w", c.opts.CriticalCache, err))
	}

	entries := make([]cache.Entry, 0, len(c.opts.CriticalResources))
	var errs []error
	for _, path := range c.opts.CriticalResources {
		req, err := bypassRequest(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		resp, err := c.fetchNetwork(ctx, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		entries = append(entries, resp.entry(req.Key()))
	}
	if len(errs) > 0 {
		return fail(errors.Join(errs...))
	}
	if err := store.PutAll(ctx, entries); err != nil {
		return fail(fmt.Errorf("store critical resources: %w", err))
	}
	for _, entry := range entries {
		report.Resources = append(report.Resources, entry.Key)
	}

	apiStore, err := c.storage.Open(ctx, c.opts.APICache)
	if err != nil {
		return fail(fmt.Errorf("open %s: %w", c.opts.APICache, err))
	}
	report.Endpoints = c.refresh(ctx, apiStore, c.opts.CriticalAPI)

	c.mu.Lock()
	c.skipWaiting = true
	c.mu.Unlock()
	c.setState(ctx, StateInstalled)
	c.logger.Info("install complete",
		logger.F("resources", len(report.Resources)),
		logger.F("api_failed", len(report.FailedEndpoints())),
	)
	return report, nil
}

// refresh fetches each endpoint in order and overwrites its entry on success.
// Failures are logged and recorded, never returned.
func (c *Controller) refresh(ctx context.Context, store cache.Store, endpoints []string) []EndpointResult {
	results := make([]EndpointResult, 0, len(endpoints))
	for _, endpoint := range endpoints {
		result := EndpointResult{Endpoint: endpoint}
		req, err := NewRequest(http.MethodGet, endpoint)
		if err == nil {
			var resp *Response
			resp, err = c.fetchNetwork(ctx, req)
			if err == nil {
				err = store.Put(ctx, resp.entry(req.Key()))
			}
		}
		if err != nil {
			result.Err = err
			c.logger.Warn("failed to cache api endpoint", logger.F("endpoint", endpoint), logger.F("error", err))
		}
		results = append(results, result)
	}
	return results
}

// Activate deletes every store other than the two current ones, makes sure
// both exist and claims open pages.
func (c *Controller) Activate(ctx context.Context) (ActivateReport, error) {
	ctx, span := c.tracer.Start(ctx, "offline.activate")
	defer span.End()

	var report ActivateReport
	if c.State() == StateRedundant {
		return report, ErrRedundant
	}
	c.setState(ctx, StateActivating)

	names, err := c.storage.Names(ctx)
	if err != nil {
		span.RecordError(err)
		return report, fmt.Errorf("offline: list stores: %w", err)
	}
	for _, name := range names {
		if name == c.opts.CriticalCache || name == c.opts.APICache {
			continue
		}
		if _, err := c.storage.Delete(ctx, name); err != nil {
			span.RecordError(err)
			return report, fmt.Errorf("offline: delete store %s: %w", name, err)
		}
		c.logger.Info("deleted stale cache", logger.F("store", name))
		report.Deleted = append(report.Deleted, name)
	}
	for _, name := range []string{c.opts.CriticalCache, c.opts.APICache} {
		if _, err := c.storage.Open(ctx, name); err != nil {
			span.RecordError(err)
			return report, fmt.Errorf("offline: open store %s: %w", name, err)
		}
	}

	c.setState(ctx, StateActive)
	if err := c.clients.Claim(ctx); err != nil {
		c.logger.Warn("claim clients failed", logger.F("error", err))
	}
	return report, nil
}

// Start installs and, when the install asks to skip waiting, activates.
func (c *Controller) Start(ctx context.Context) (InstallReport, ActivateReport, error) {
	installed, err := c.Install(ctx)
	if err != nil {
		return installed, ActivateReport{}, err
	}
	if !c.SkipWaiting() {
		return installed, ActivateReport{}, nil
	}
	activated, err := c.Activate(ctx)
	return installed, activated, err
}

func bypassRequest(path string) (*Request, error) {
	req, err := NewRequest(http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	return req, nil
}

func failed(results []EndpointResult) []string {
	var out []string
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r.Endpoint)
		}
	}
	return out
}
