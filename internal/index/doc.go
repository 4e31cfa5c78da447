// Package index computes a daily-rebalanced, equal-weighted stock index.
//
// The computation is a single left-to-right fold over date-ordered
// snapshots. Each step detects composition changes against the prior
// day, averages simple returns over tickers present on both days,
// advances the index level and cumulative multiplier, and tracks the
// best and worst day. Rounding is applied only when records are built;
// the carried state keeps full precision.
package index
