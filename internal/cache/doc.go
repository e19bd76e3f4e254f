// Package cache holds rendered frames under a byte budget.
//
// Entries are ordered by when they were produced. Lookups do not refresh an
// entry, so eviction removes the least recently produced frames first. A
// frame that alone exceeds the budget is kept as a one-time overage rather
// than evicting it in a loop.
//
// Listeners registered with OnChange run after every insert, eviction and
// clear, outside the cache lock.
package cache
