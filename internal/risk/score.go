package risk

import (
	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/enums"
)

const (
	FactorHighClaimRatio    = "high_claim_ratio"
	FactorNoviceUser        = "novice_user"
	FactorPriorEntityClaims = "prior_entity_claims"
)

// Thresholds are the scoring knobs. They are policy, not derived values.
type Thresholds struct {
	HighClaimRatio         float64
	HighClaimRatioPoints   int
	NoviceJobThreshold     int
	NovicePoints           int
	PriorEntityClaimPoints int
	MediumAt               int
	HighAt                 int
	CriticalAt             int
}

// ThresholdsFrom reads the scoring knobs out of the insurance config.
func ThresholdsFrom(cfg config.InsuranceConfig) Thresholds {
	return Thresholds{
		HighClaimRatio:         cfg.HighClaimRatio,
		HighClaimRatioPoints:   cfg.HighClaimRatioPoints,
		NoviceJobThreshold:     cfg.NoviceJobThreshold,
		NovicePoints:           cfg.NovicePoints,
		PriorEntityClaimPoints: cfg.PriorEntityClaimPoints,
		MediumAt:               cfg.MediumRiskAt,
		HighAt:                 cfg.HighRiskAt,
		CriticalAt:             cfg.CriticalRiskAt,
	}
}

// Inputs is the history an entity is scored on. Users are scored on
// CompletedJobs and ClaimsFiled, deliveries and services on EntityClaims.
type Inputs struct {
	EntityType    enums.RiskEntityType
	CompletedJobs int64
	ClaimsFiled   int64
	EntityClaims  int64
}

type Result struct {
	Score      int
	Level      enums.RiskLevel
	Factors    []string
	ClaimRatio float64
}

// Score is a pure function of its inputs.
func Score(in Inputs, th Thresholds) Result {
	res := Result{Factors: []string{}}
	switch in.EntityType {
	case enums.RiskEntityUser:
		if in.CompletedJobs > 0 {
			res.ClaimRatio = float64(in.ClaimsFiled) / float64(in.CompletedJobs)
		}
		if res.ClaimRatio > th.HighClaimRatio {
			res.Score += th.HighClaimRatioPoints
			res.Factors = append(res.Factors, FactorHighClaimRatio)
		}
		if in.CompletedJobs < int64(th.NoviceJobThreshold) {
			res.Score += th.NovicePoints
			res.Factors = append(res.Factors, FactorNoviceUser)
		}
	case enums.RiskEntityDelivery, enums.RiskEntityService:
		if in.EntityClaims > 0 {
			res.Score += th.PriorEntityClaimPoints
			res.Factors = append(res.Factors, FactorPriorEntityClaims)
		}
	}
	res.Level = LevelFor(res.Score, th)
	return res
}

// LevelFor buckets a score: below MediumAt is LOW, then MEDIUM, HIGH, and
// CRITICAL from CriticalAt up.
func LevelFor(score int, th Thresholds) enums.RiskLevel {
	switch {
	case score >= th.CriticalAt:
		return enums.RiskLevelCritical
	case score >= th.HighAt:
		return enums.RiskLevelHigh
	case score >= th.MediumAt:
		return enums.RiskLevelMedium
	}
	return enums.RiskLevelLow
}
