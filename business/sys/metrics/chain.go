package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Chain represents the chain values reported on every scrape.
type Chain interface {
	QueryBlockNumber() uint64
	QueryMempoolLength() int
	Difficulty() uint16
	MiningReward() uint64
}

// ChainCollector reads the chain values at scrape time.
type ChainCollector struct {
	chain      Chain
	height     *prometheus.Desc
	mempool    *prometheus.Desc
	difficulty *prometheus.Desc
	reward     *prometheus.Desc
}

// NewChainCollector constructs a collector for the chain.
func NewChainCollector(chain Chain) *ChainCollector {
	desc := func(name string, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "chain", name), help, nil, nil)
	}

	return &ChainCollector{
		chain:      chain,
		height:     desc("height", "Index of the latest block."),
		mempool:    desc("mempool_transactions", "Transactions waiting to be mined."),
		difficulty: desc("difficulty", "Difficulty of the next block."),
		reward:     desc("mining_reward", "Amount minted by the next coinbase."),
	}
}

// Describe implements the prometheus.Collector interface.
func (c *ChainCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.height
	ch <- c.mempool
	ch <- c.difficulty
	ch <- c.reward
}

// Collect implements the prometheus.Collector interface.
func (c *ChainCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.height, prometheus.GaugeValue, float64(c.chain.QueryBlockNumber()))
	ch <- prometheus.MustNewConstMetric(c.mempool, prometheus.GaugeValue, float64(c.chain.QueryMempoolLength()))
	ch <- prometheus.MustNewConstMetric(c.difficulty, prometheus.GaugeValue, float64(c.chain.Difficulty()))
	ch <- prometheus.MustNewConstMetric(c.reward, prometheus.GaugeValue, float64(c.chain.MiningReward()))
}
