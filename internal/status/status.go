// Package status provides operational health checks for the doctor command.
// High-signal visibility without dashboards: is the registry reachable, are
// the engines up, is the guard armed.
package status

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rowguard-labs/rowguard/internal/adapters"
	"github.com/rowguard-labs/rowguard/internal/guard"
	"github.com/rowguard-labs/rowguard/internal/storage"
)

// ComponentStatus represents the status of one checked component.
type ComponentStatus struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message"`
}

// Report is the result of a full doctor run.
type Report struct {
	Ready      bool                       `json:"ready"`
	Reason     string                     `json:"reason,omitempty"`
	Registry   ComponentStatus            `json:"registry"`
	Engines    map[string]ComponentStatus `json:"engines"`
	GuardArmed bool                       `json:"guard_armed"`
	GuardScope string                     `json:"guard_scope,omitempty"`
	Relations  int                        `json:"relations"`
}

// Doctor runs health checks against the registry and every configured
// engine.
type Doctor struct {
	relations storage.RelationRegistry
	engines   *adapters.Registry
	rule      *guard.Rule
	retry     adapters.RetryConfig
}

// NewDoctor creates a doctor over the given components.
func NewDoctor(relations storage.RelationRegistry, engines *adapters.Registry, rule *guard.Rule) *Doctor {
	return &Doctor{
		relations: relations,
		engines:   engines,
		rule:      rule,
		retry:     adapters.DefaultRetryConfig(),
	}
}

// Check runs all health checks and returns the report. The report is always
// returned; Ready and Reason carry the verdict.
func (d *Doctor) Check(ctx context.Context) *Report {
	report := &Report{
		Ready:   true,
		Engines: make(map[string]ComponentStatus),
	}

	report.Registry = d.checkRegistry(ctx, report)

	if d.engines == nil || d.engines.IsEmpty() {
		report.Ready = false
		if report.Reason == "" {
			report.Reason = "no engines configured"
		}
	} else {
		for name, err := range d.engines.CheckAllHealth(ctx) {
			status := ComponentStatus{Ready: true, Message: "available"}
			if err != nil {
				// One more try with backoff before declaring the engine down;
				// doctor is allowed to retry, the row loop is not.
				result := d.retryPing(ctx, name)
				if !result.Success {
					status = ComponentStatus{Ready: false, Message: result.String()}
					report.Ready = false
					if report.Reason == "" {
						report.Reason = fmt.Sprintf("engine %s not ready", name)
					}
				}
			}
			report.Engines[name] = status
		}
	}

	report.GuardArmed = d.rule.Enabled()
	if report.GuardArmed {
		report.GuardScope = d.rule.Abort().Scope().String()
	}

	return report
}

func (d *Doctor) checkRegistry(ctx context.Context, report *Report) ComponentStatus {
	if d.relations == nil {
		report.Ready = false
		report.Reason = "no relation registry configured"
		return ComponentStatus{Ready: false, Message: "not configured"}
	}
	if err := d.relations.CheckConnectivity(ctx); err != nil {
		report.Ready = false
		report.Reason = "registry not reachable: " + err.Error()
		return ComponentStatus{Ready: false, Message: err.Error()}
	}
	rels, err := d.relations.List(ctx)
	if err != nil {
		report.Ready = false
		report.Reason = "registry list failed: " + err.Error()
		return ComponentStatus{Ready: false, Message: err.Error()}
	}
	report.Relations = len(rels)
	return ComponentStatus{Ready: true, Message: "connected"}
}

func (d *Doctor) retryPing(ctx context.Context, name string) adapters.RetryResult {
	adapter, ok := d.engines.Get(name)
	if !ok {
		return adapters.RetryResult{Attempts: 0, Success: false}
	}
	return adapters.ExecuteWithRetry(ctx, d.retry, func() error {
		return adapter.Ping(ctx)
	})
}

// String renders the report for terminal output.
func (r *Report) String() string {
	var sb strings.Builder

	verdict := "ready"
	if !r.Ready {
		verdict = "not ready"
	}
	sb.WriteString(fmt.Sprintf("Status: %s\n", verdict))
	if r.Reason != "" {
		sb.WriteString(fmt.Sprintf("Reason: %s\n", r.Reason))
	}

	sb.WriteString(fmt.Sprintf("Registry: %s (%d relations)\n", r.Registry.Message, r.Relations))

	if len(r.Engines) > 0 {
		sb.WriteString("Engines:\n")
		names := make([]string, 0, len(r.Engines))
		for name := range r.Engines {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", name, r.Engines[name].Message))
		}
	}

	if r.GuardArmed {
		sb.WriteString(fmt.Sprintf("Guard: armed (%s scope)\n", r.GuardScope))
	} else {
		sb.WriteString("Guard: disarmed\n")
	}

	return sb.String()
}
