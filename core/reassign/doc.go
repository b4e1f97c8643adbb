// Package reassign turns idle consists into length- and count-bounded task
// proposals and hands them to the host for construction.
//
// A cycle walks through the phases Filtering, Grouping, Classifying,
// Batching and Finalizing. Every phase receives the cycle state and returns
// the state it produced; nothing is shared between cycles except the
// externally owned idle list.
package reassign
