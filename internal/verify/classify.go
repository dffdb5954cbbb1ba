package verify

import (
	"github.com/pharmscope/license-verify/internal/config"
	"github.com/pharmscope/license-verify/internal/model"
)

// Classifier buckets merged pair state into a final status. Pure; thresholds
// come from configuration, never literals.
type Classifier struct {
	cfg config.ClassifyConfig
}

func NewClassifier(cfg config.ClassifyConfig) Classifier {
	return Classifier{cfg: cfg}
}

// Bucket maps a score to its band. Boundaries are closed-open: exactly the
// match threshold is a match, exactly the weak threshold is a weak match.
func (c Classifier) Bucket(score float64) model.StatusBucket {
	switch {
	case score >= c.cfg.MatchThreshold:
		return model.StatusMatch
	case score >= c.cfg.WeakThreshold:
		return model.StatusWeakMatch
	default:
		return model.StatusNoMatch
	}
}

// Classify assigns the status for one merged pair:
//   - empty override: no data, regardless of any score.
//   - present override with no matching result: no data (validated but
//     unconfirmable from current search data).
//   - present override with a scored match: bucketed by score.
//   - no override and no result, or a result without a score: no data.
//   - otherwise: bucketed by the driving result's score.
func (c Classifier) Classify(m mergedPair) model.StatusBucket {
	if m.Override != nil {
		switch m.Override.Type {
		case model.OverrideEmpty:
			return model.StatusNoData
		case model.OverridePresent:
			if m.Matched == nil || m.Score == nil {
				return model.StatusNoData
			}
			return c.Bucket(m.Score.Overall)
		}
	}
	if m.Best == nil || m.Score == nil {
		return model.StatusNoData
	}
	return c.Bucket(m.Score.Overall)
}
