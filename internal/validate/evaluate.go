package validate

import "fmt"

// Actions an evaluation can recommend.
const (
	ActionDeploy = "deploy"
	ActionRetry  = "retry"
	ActionRetire = "retire"
)

// Evaluation maps a validation result onto a next step for the
// indicator's lifecycle.
type Evaluation struct {
	Action     string `json:"action"`
	Confidence string `json:"confidence"` // high | medium | low
	Reason     string `json:"reason"`
}

// Evaluate turns a validation result into a deterministic action.
// Deploy when every required gate passed; retire when the deflated
// Sharpe verdict is decisively negative (more data will not rescue a
// p-value that high); retry otherwise.
func (r *Runner) Evaluate(res *Result) Evaluation {
	if res.OverallPassed {
		conf := "medium"
		if res.GatesPassed == res.TotalGates {
			conf = "high"
		}
		return Evaluation{
			Action:     ActionDeploy,
			Confidence: conf,
			Reason:     fmt.Sprintf("all required gates passed (%d/%d total)", res.GatesPassed, res.TotalGates),
		}
	}

	if res.DSR.PValue >= r.cfg.DecisivePValue {
		return Evaluation{
			Action:     ActionRetire,
			Confidence: "high",
			Reason: fmt.Sprintf("deflated Sharpe p-value %.3f at or above %.2f after %d trials; no detectable edge",
				res.DSR.PValue, r.cfg.DecisivePValue, res.DSR.NTrials),
		}
	}

	failed := res.TotalGates - res.GatesPassed
	conf := "medium"
	if failed > 2 {
		conf = "low"
	}
	return Evaluation{
		Action:     ActionRetry,
		Confidence: conf,
		Reason:     fmt.Sprintf("%d gate(s) failed but the deflated Sharpe verdict is not conclusive; revise and revalidate", failed),
	}
}
