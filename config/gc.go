package config

import (
	"fmt"
	"time"
)

// MinGCNumEpochsToKeep is the lowest number of epochs garbage collection
// retains. Epoch sync and validator bookkeeping read the two epochs before
// the current one.
const MinGCNumEpochsToKeep uint64 = 3

// GCConfig configures chain garbage collection.
type GCConfig struct {
	// GCBlocksLimit is the maximum number of blocks deleted in one pass.
	GCBlocksLimit uint64 `mapstructure:"gc-blocks-limit"`
	// GCForkCleanStep is the number of heights below the fork tail scanned
	// for forks in one pass.
	GCForkCleanStep uint64 `mapstructure:"gc-fork-clean-step"`
	// GCNumEpochsToKeep is the number of most recent epochs kept. Values
	// below MinGCNumEpochsToKeep are raised to it.
	GCNumEpochsToKeep uint64 `mapstructure:"gc-num-epochs-to-keep"`
	// GCStepPeriod is the interval between two passes.
	GCStepPeriod time.Duration `mapstructure:"gc-step-period"`
}

func DefaultGCConfig() GCConfig {
	return GCConfig{
		GCBlocksLimit:     2,
		GCForkCleanStep:   100,
		GCNumEpochsToKeep: 5,
		GCStepPeriod:      500 * time.Millisecond,
	}
}

// NumEpochsToKeep returns the configured number of epochs to keep, floored
// at MinGCNumEpochsToKeep.
func (c GCConfig) NumEpochsToKeep() uint64 {
	return max(c.GCNumEpochsToKeep, MinGCNumEpochsToKeep)
}

// Validate checks the config for values no pass can run with.
func (c GCConfig) Validate() error {
	if c.GCStepPeriod <= 0 {
		return fmt.Errorf("gc step period must be positive, got %v", c.GCStepPeriod)
	}
	if c.GCForkCleanStep == 0 {
		return fmt.Errorf("gc fork clean step must be positive")
	}
	return nil
}
