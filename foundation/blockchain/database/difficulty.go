package database

import "time"

// Retarget returns the difficulty for the next block given the difficulty of
// the latest block and the timestamps, in Unix milliseconds, of the latest
// two blocks. Blocks found in less than half the target time raise the
// difficulty by one up to maxDifficulty. Blocks that took more than twice the
// target time lower it by one down to 1.
func Retarget(current uint16, maxDifficulty uint16, prevTimeStamp uint64, latestTimeStamp uint64, target time.Duration) uint16 {
	if current == 0 {
		current = 1
	}

	var timeDiff time.Duration
	if latestTimeStamp > prevTimeStamp {
		timeDiff = time.Duration(latestTimeStamp-prevTimeStamp) * time.Millisecond
	}

	switch {
	case timeDiff < target/2:
		if maxDifficulty == 0 || current < maxDifficulty {
			return current + 1
		}

	case timeDiff > target*2:
		if current > 1 {
			return current - 1
		}
	}

	return current
}
