package metrics_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/business/sys/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type chain struct{}

func (chain) QueryBlockNumber() uint64 { return 7 }
func (chain) QueryMempoolLength() int { return 3 }
func (chain) Difficulty() uint16 { return 2 }
func (chain) MiningReward() uint64 { return 100 }

func Test_Metrics(t *testing.T) {
	t.Log("Given the need to report metrics to prometheus.")
	{
		t.Logf("\tTest 0:\tWhen requests are observed and the chain is scraped.")
		{
			reg := prometheus.NewRegistry()

			m, err := metrics.New(reg)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to register the metrics: %v", failed, err)
			}
			if err := reg.Register(metrics.NewChainCollector(chain{})); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to register the chain collector: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to register the collectors.", success)

			m.ObserveRequest(http.MethodGet, "/v1/chain/info", http.StatusOK, time.Now())
			m.ObserveRequest(http.MethodGet, "/v1/chain/info", http.StatusOK, time.Now())
			m.AddError(http.MethodPost, "/v1/tx/submit")
			m.AddPanic()

			families, err := reg.Gather()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to gather: %v", failed, err)
			}

			values := make(map[string]float64)
			for _, mf := range families {
				for _, metric := range mf.GetMetric() {
					switch {
					case metric.GetCounter() != nil:
						values[mf.GetName()] += metric.GetCounter().GetValue()
					case metric.GetGauge() != nil:
						values[mf.GetName()] = metric.GetGauge().GetValue()
					}
				}
			}

			exp := map[string]float64{
				"ledger_api_requests_total":         2,
				"ledger_api_errors_total":           1,
				"ledger_api_panics_total":           1,
				"ledger_chain_height":               7,
				"ledger_chain_mempool_transactions": 3,
				"ledger_chain_difficulty":           2,
				"ledger_chain_mining_reward":        100,
			}

			for name, v := range exp {
				if values[name] != v {
					t.Fatalf("\t%s\tTest 0:\tShould report %s as %v: got %v", failed, name, v, values[name])
				}
			}
			t.Logf("\t%s\tTest 0:\tShould report the request and chain values.", success)

			if _, err := metrics.New(reg); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould not register the metrics twice.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not register the metrics twice.", success)
		}
	}
}
