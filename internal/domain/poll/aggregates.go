package poll

// ComputeAggregates derives the full tallies from the complete vote map.
// Entries with an empty normalized selection do not count as voters. The
// recompute is always total; incrementally patching totals would double-count
// voters who switch options.
func ComputeAggregates(votes map[string]VoteEntry) Aggregates {
	agg := Aggregates{OptionTotals: map[string]int{}}
	for _, entry := range votes {
		ids := NormalizeIDs(entry.OptionIDs)
		if len(ids) == 0 {
			continue
		}
		agg.TotalVoters++
		agg.TotalVotes += len(ids)
		for _, id := range ids {
			agg.OptionTotals[id]++
		}
	}
	return agg
}
