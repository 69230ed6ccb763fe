package models

import "strings"

// ============================================================================
// HEALTH LABEL
// ============================================================================

type HealthLabel string

const (
	HealthCritical  HealthLabel = "CRITICAL"
	HealthPoor      HealthLabel = "POOR"
	HealthModerate  HealthLabel = "MODERATE"
	HealthGood      HealthLabel = "GOOD"
	HealthExcellent HealthLabel = "EXCELLENT"
)

// DeriveHealthLabel maps a score onto its label. Both thresholds are strict:
// 75 is MODERATE and 50 is POOR.
func DeriveHealthLabel(score float64) HealthLabel {
	switch {
	case score > 75:
		return HealthGood
	case score > 50:
		return HealthModerate
	default:
		return HealthPoor
	}
}

// ============================================================================
// INTERVENTION PRIORITY
// ============================================================================

type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// PriorityForIndex is the positional default: first P1, second P2, the rest P3.
func PriorityForIndex(i int) Priority {
	switch i {
	case 0:
		return PriorityP1
	case 1:
		return PriorityP2
	default:
		return PriorityP3
	}
}

// ParsePriority accepts "p1", "P2", " P3 " and reports whether the value was recognised.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case PriorityP1:
		return PriorityP1, true
	case PriorityP2:
		return PriorityP2, true
	case PriorityP3:
		return PriorityP3, true
	}
	return "", false
}

// ============================================================================
// COST LEVEL
// ============================================================================

type CostLevel string

const (
	CostLow    CostLevel = "Low"
	CostMedium CostLevel = "Medium"
	CostHigh   CostLevel = "High"
)

// ParseCostLevel is case-insensitive; unknown values fall back to Medium.
func ParseCostLevel(s string) CostLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return CostLow
	case "high":
		return CostHigh
	default:
		return CostMedium
	}
}
