package result

// MemberCounts returns the size of each group among participants, keyed
// by the value of field. Groups appear in order of first occurrence.
// Participants whose field is null or missing belong to no group and are
// not counted.
func MemberCounts(participants []Record, field string) ([]int, error) {
	index := make(map[string]int)
	var counts []int
	for _, p := range participants {
		v, ok := p[field]
		if !ok || v == nil {
			continue
		}
		key, err := GroupKey(v)
		if err != nil {
			return nil, err
		}
		i, seen := index[key]
		if !seen {
			i = len(counts)
			index[key] = i
			counts = append(counts, 0)
		}
		counts[i]++
	}
	return counts, nil
}
