package genesis_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Load(t *testing.T) {
	t.Log("Given the need to load chain parameters from a genesis file.")
	{
		t.Logf("\tTest 0:\tWhen the file only sets some values.")
		{
			path := filepath.Join(t.TempDir(), "genesis.json")
			doc := `{"difficulty": 2, "target_block_time": "4s"}`
			if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to write the file: %v", failed, err)
			}

			g, err := genesis.Load(path)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load the file: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to load the file.", success)

			if g.Difficulty != 2 {
				t.Errorf("\t%s\tTest 0:\tShould keep the difficulty: got %d", failed, g.Difficulty)
			}
			if g.TargetBlockTime.Std() != 4*time.Second {
				t.Errorf("\t%s\tTest 0:\tShould parse the target block time: got %v", failed, g.TargetBlockTime.Std())
			}
			if g.MaxDifficulty != genesis.DefaultMaxDifficulty {
				t.Errorf("\t%s\tTest 0:\tShould default the max difficulty: got %d", failed, g.MaxDifficulty)
			}
			if g.MiningReward != genesis.DefaultMiningReward {
				t.Errorf("\t%s\tTest 0:\tShould default the mining reward: got %d", failed, g.MiningReward)
			}
			if g.TransPerBlock != genesis.DefaultTransPerBlock {
				t.Errorf("\t%s\tTest 0:\tShould default the trans per block: got %d", failed, g.TransPerBlock)
			}
			t.Logf("\t%s\tTest 0:\tShould fill in the defaults.", success)
		}

		t.Logf("\tTest 1:\tWhen the max difficulty is below the difficulty.")
		{
			path := filepath.Join(t.TempDir(), "genesis.json")
			doc := `{"difficulty": 5, "max_difficulty": 3}`
			if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to write the file: %v", failed, err)
			}

			if _, err := genesis.Load(path); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject the file.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the file.", success)
		}
	}
}
