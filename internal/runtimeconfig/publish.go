package runtimeconfig

import (
	"errors"
	"fmt"

	"devstack/internal/utils"
	"devstack/pkg/logging"
)

// Destination is one place a service expects its copy of the document.
type Destination struct {
	Service string
	Path    string
}

// DestinationResult records the outcome of writing one copy.
type DestinationResult struct {
	Destination
	Err error
}

// PublishReport collects the per-destination outcomes of Publish.
type PublishReport struct {
	Results []DestinationResult
}

// Failed returns the results that could not be written.
func (r PublishReport) Failed() []DestinationResult {
	var failed []DestinationResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// FailedServices returns the set of services with at least one failed destination.
func (r PublishReport) FailedServices() map[string]error {
	out := make(map[string]error)
	for _, res := range r.Failed() {
		out[res.Service] = errors.Join(out[res.Service], res.Err)
	}
	return out
}

// Err joins all destination errors, or returns nil.
func (r PublishReport) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

// Publish writes the same encoded document to every destination. A failed write
// is recorded and the remaining destinations are still written.
func Publish(doc Document, destinations []Destination) (PublishReport, error) {
	data, err := doc.Marshal()
	if err != nil {
		return PublishReport{}, err
	}

	report := PublishReport{Results: make([]DestinationResult, 0, len(destinations))}
	for _, dest := range destinations {
		werr := utils.WriteFileAtomic(dest.Path, data, 0644)
		if werr != nil {
			werr = fmt.Errorf("publish config for %s to %s: %w", dest.Service, dest.Path, werr)
			logging.Error("RuntimeConfig", werr, "Failed to publish runtime config")
		} else {
			logging.Debug("RuntimeConfig", "Published runtime config for %s to %s", dest.Service, dest.Path)
		}
		report.Results = append(report.Results, DestinationResult{Destination: dest, Err: werr})
	}
	return report, nil
}
