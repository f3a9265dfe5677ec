// Package fx describes effect chains and builds their processing graphs.
//
// A [Chain] is an ordered list of [Descriptor] values, each naming an effect
// [Kind] and its parameters. The parameter table ([Lookup], [Specs]) gives
// every parameter a range and a default; values are always clamped before
// they reach a node. A [Factory] turns one descriptor into an [Instance]: a
// self-contained sub-graph with an entry node, an exit node and, for the
// mixable kinds (reverb, delay, chorus), a pair of wet/dry gains whose values
// sum to one.
package fx
