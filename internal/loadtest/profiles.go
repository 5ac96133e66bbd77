// internal/loadtest/profiles.go
package loadtest

import (
	"fmt"
	"time"

	"github.com/FairForge/heritageload/internal/metrics"
)

// Scenario names accepted by Profile.
const (
	ScenarioReader      = "reader"
	ScenarioContributor = "contributor"
)

func sec(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

// ReaderProfile ramps up to 1000 readers.
func ReaderProfile() Options {
	return Options{
		Name: ScenarioReader,
		Stages: []Stage{
			{Duration: sec(60), Target: 200},
			{Duration: sec(90), Target: 200},
			{Duration: sec(60), Target: 500},
			{Duration: sec(90), Target: 500},
			{Duration: sec(90), Target: 1000},
			{Duration: sec(120), Target: 1000},
			{Duration: sec(30), Target: 300},
			{Duration: sec(60), Target: 0},
		},
		Thresholds: []Threshold{
			MustThreshold(metrics.HTTPReqDuration, "p(95)<2000"),
			MustThreshold(metrics.HTTPReqFailed, "rate<0.01"),
		},
	}
}

// ContributorProfile ramps up to 50 contributors.
func ContributorProfile() Options {
	return Options{
		Name: ScenarioContributor,
		Stages: []Stage{
			{Duration: sec(60), Target: 10},
			{Duration: sec(90), Target: 10},
			{Duration: sec(60), Target: 25},
			{Duration: sec(90), Target: 25},
			{Duration: sec(90), Target: 50},
			{Duration: sec(120), Target: 50},
			{Duration: sec(30), Target: 15},
			{Duration: sec(60), Target: 0},
		},
		Thresholds: []Threshold{
			MustThreshold(metrics.HTTPReqDuration, "p(95)<20000"),
			MustThreshold(metrics.HTTPReqFailed, "rate<0.05"),
		},
	}
}

// Profile returns the fixed profile of a scenario.
func Profile(scenario string) (Options, error) {
	switch scenario {
	case ScenarioReader:
		return ReaderProfile(), nil
	case ScenarioContributor:
		return ContributorProfile(), nil
	default:
		return Options{}, fmt.Errorf("unknown scenario %q", scenario)
	}
}
