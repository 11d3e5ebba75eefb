package model

// MetricKind names one of the fixed structural metrics.
type MetricKind string

const (
	MetricLength     MetricKind = "length"
	MetricComplexity MetricKind = "complexity"
	MetricNesting    MetricKind = "nesting_depth"
	MetricArgCount   MetricKind = "arg_count"
	MetricTryBlocks  MetricKind = "try_block_count"
)

// MetricSet holds all metric kinds for a single unit.
type MetricSet map[MetricKind]int

// Measurements maps unit identity to its metric set.
type Measurements map[string]MetricSet
