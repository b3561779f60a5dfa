// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Set of default chain parameters used when the genesis file leaves a value
// unset.
const (
	DefaultDifficulty      = 1
	DefaultMaxDifficulty   = 6
	DefaultMiningReward    = 100
	DefaultTransPerBlock   = 10
	DefaultTargetBlockTime = 10 * time.Second
)

// Genesis represents the genesis file.
type Genesis struct {
	Date            time.Time `json:"date"`
	TransPerBlock   uint16    `json:"trans_per_block"`   // The maximum number of user transactions that can be in a block.
	Difficulty      uint16    `json:"difficulty"`        // Starting number of leading hex zeros a block hash needs.
	MaxDifficulty   uint16    `json:"max_difficulty"`    // Ceiling for the difficulty retarget.
	MiningReward    uint64    `json:"mining_reward"`     // Amount minted by the coinbase transaction of every block.
	TargetBlockTime Duration  `json:"target_block_time"` // Expected time between two blocks.
}

// Default returns the genesis used when no file is provided.
func Default() Genesis {
	return Genesis{
		Date:            time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		TransPerBlock:   DefaultTransPerBlock,
		Difficulty:      DefaultDifficulty,
		MaxDifficulty:   DefaultMaxDifficulty,
		MiningReward:    DefaultMiningReward,
		TargetBlockTime: Duration(DefaultTargetBlockTime),
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Missing values are filled in with
// the package defaults.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	genesis.applyDefaults()

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the chain parameters are usable.
func (g Genesis) Validate() error {
	if g.Difficulty == 0 {
		return errors.New("difficulty must be at least 1")
	}

	if g.MaxDifficulty < g.Difficulty {
		return fmt.Errorf("max difficulty %d is below starting difficulty %d", g.MaxDifficulty, g.Difficulty)
	}

	if g.MaxDifficulty > 64 {
		return fmt.Errorf("max difficulty %d exceeds the hash length", g.MaxDifficulty)
	}

	if g.MiningReward == 0 {
		return errors.New("mining reward must be greater than zero")
	}

	return nil
}

func (g *Genesis) applyDefaults() {
	def := Default()

	if g.Date.IsZero() {
		g.Date = def.Date
	}
	if g.TransPerBlock == 0 {
		g.TransPerBlock = def.TransPerBlock
	}
	if g.Difficulty == 0 {
		g.Difficulty = def.Difficulty
	}
	if g.MaxDifficulty == 0 {
		g.MaxDifficulty = def.MaxDifficulty
	}
	if g.MiningReward == 0 {
		g.MiningReward = def.MiningReward
	}
	if g.TargetBlockTime == 0 {
		g.TargetBlockTime = def.TargetBlockTime
	}
}

// =============================================================================

// Duration allows the target block time to be written as "10s" in the
// genesis file.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements the json.Marshaler interface.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements the json.Unmarshaler interface. Both duration
// strings and integer nanoseconds are accepted.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(n)

	return nil
}
