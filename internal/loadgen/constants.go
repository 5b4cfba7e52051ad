package loadgen

import "time"

// Defaults applied by Config.withDefaults.
const (
	DefaultPrograms     = 5
	DefaultCandidates   = 1000
	DefaultBatchSize    = 50
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 200 * time.Millisecond

	workerChannelMultiplier = 2
	percentageMultiplier    = 100
	historyYears            = 5
	firstHistoryYear        = 2019
	testMaxScore            = 400
	maxResultLimit          = 1000
)
