package prober

import (
	"context"
	"net/http"
	"sort"

	"github.com/hashicorp-forge/distributor/pkg/auth"
	"github.com/hashicorp-forge/distributor/pkg/remote"
)

// Diagnosis is a machine-readable problem found by CheckConnections.
type Diagnosis string

const (
	// DiagnosisUnreachable means the root request failed or returned no JSON.
	DiagnosisUnreachable Diagnosis = "no_external_connection"

	// DiagnosisWrongEndpoint means the remote advertises a different API
	// root. Report.EndpointSuggestion holds it.
	DiagnosisWrongEndpoint Diagnosis = "wrong_endpoint"

	// DiagnosisNoTypes means no routes or type registry could be read.
	DiagnosisNoTypes Diagnosis = "no_types"

	// DiagnosisNoDistributor means the remote is a plain REST API without
	// the protocol marker. Advisory only.
	DiagnosisNoDistributor Diagnosis = "no_distributor"
)

// Report is the result of CheckConnections.
type Report struct {
	Diagnoses          []Diagnosis
	CanGet             []string
	CanPost            []string
	EndpointSuggestion string
}

// Has reports whether d was diagnosed.
func (r *Report) Has(d Diagnosis) bool {
	for _, got := range r.Diagnoses {
		if got == d {
			return true
		}
	}
	return false
}

// Err returns an error for the first fatal diagnosis, or nil.
func (r *Report) Err() error {
	switch {
	case r.Has(DiagnosisWrongEndpoint):
		return &remote.WrongEndpointError{Suggestion: r.EndpointSuggestion}
	case r.Has(DiagnosisUnreachable):
		return remote.ErrTransport
	case r.Has(DiagnosisNoTypes):
		return remote.ErrNoCollectionLink
	}
	return nil
}

func (r *Report) add(d Diagnosis) {
	if !r.Has(d) {
		r.Diagnoses = append(r.Diagnoses, d)
	}
}

// CheckConnections verifies the remote is reachable and compliant, then
// probes every discovered type for read and write access. Individual probe
// failures exclude the type rather than failing the check.
func (p *Prober) CheckConnections(ctx context.Context) *Report {
	report := &Report{CanGet: []string{}, CanPost: []string{}}
	logger := p.logger.With("base_url", p.baseURL)

	root, err := p.client.Get(ctx, p.baseURL, p.getArgs())
	if err != nil || root.Empty() {
		logger.Debug("root unreachable", "error", err)
		report.add(DiagnosisUnreachable)
		return report
	}

	var data map[string]any
	if err := root.DecodeJSON(&data); err != nil || len(data) == 0 {
		report.add(DiagnosisUnreachable)
	}

	if suggestion := remote.NormalizeBaseURL(remote.APIRootFromLinks(root.Header)); suggestion != "" && suggestion != p.baseURL {
		logger.Info("remote advertises a different API root", "suggestion", suggestion)
		report.Diagnoses = []Diagnosis{DiagnosisWrongEndpoint}
		report.EndpointSuggestion = suggestion
		return report
	}

	var routes map[string]Route
	if raw, ok := data["routes"]; ok && raw != nil {
		routes, err = decodeRoutes(raw)
		if err != nil {
			logger.Debug("routes table unreadable", "error", err)
		}
	}
	if len(routes) == 0 && !report.Has(DiagnosisUnreachable) {
		report.add(DiagnosisNoTypes)
	}
	if len(report.Diagnoses) > 0 {
		return report
	}

	if !root.HasMarker() {
		report.add(DiagnosisNoDistributor)
	}

	types, resp, err := p.fetchTypes(ctx)
	if err != nil || resp.StatusCode != http.StatusOK || len(types) == 0 {
		logger.Debug("type registry unreadable", "error", err)
		report.add(DiagnosisNoTypes)
		return report
	}

	keys := make([]string, 0, len(types))
	for k := range types {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, typeKey := range keys {
		if typeKey == SubscriptionType {
			continue
		}

		desc, err := decodeDescriptor(types[typeKey])
		if err != nil {
			continue
		}
		link := desc.ItemsLink()
		if link == "" {
			continue
		}
		route, ok := lookupRoute(routes, p.routeKey(link))
		if !ok {
			continue
		}

		if route.Supports(http.MethodGet) && p.probeRead(ctx, link) {
			report.CanGet = append(report.CanGet, typeKey)
		}
		if route.Supports(http.MethodPost) && p.probeWrite(ctx, link) {
			report.CanPost = append(report.CanPost, typeKey)
		}
	}

	logger.Debug("capability check complete", "can_get", report.CanGet, "can_post", report.CanPost)
	return report
}

func (p *Prober) probeRead(ctx context.Context, link string) bool {
	resp, err := p.client.Get(ctx, link, p.getArgs())
	return probeAllowed(resp, err)
}

func (p *Prober) probeWrite(ctx context.Context, link string) bool {
	if p.writeProbe == WriteProbeDeclared {
		return true
	}
	args := p.auth.FormatPostArgs(auth.RequestArgs{Timeout: remote.DiscoveryTimeout})
	resp, err := p.client.PostJSON(ctx, link, map[string]int{"test": 1}, args)
	return probeAllowed(resp, err)
}

// probeAllowed treats anything but a transport failure or a 401 as permitted.
func probeAllowed(resp *remote.Response, err error) bool {
	if err != nil {
		return false
	}
	return resp.StatusCode != http.StatusUnauthorized
}
