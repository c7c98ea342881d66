package config

import (
	"os"
	"strconv"

	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

// Runtime is the baseline runtime configuration for the analyzer.
type Runtime struct {
	Detector       workflow.DetectorConfig
	Planner        workflow.PlannerConfig
	WorkerPoolSize int
}

// FromEnv loads runtime config from environment with safe defaults.
func FromEnv() Runtime {
	cfg := Runtime{
		Detector:       workflow.DefaultDetectorConfig(),
		Planner:        workflow.DefaultPlannerConfig(),
		WorkerPoolSize: 10,
	}

	if v := os.Getenv("BOTTLENECK_THRESHOLD_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Detector.ThresholdPct = f
		}
	}
	if v := os.Getenv("BOTTLENECK_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Detector.TopK = n
		}
	}
	if v := os.Getenv("BATCH_DISCOUNT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f < 1 {
			cfg.Planner.BatchDiscount = f
		}
	}
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WorkerPoolSize = n
		}
	}

	return cfg
}
