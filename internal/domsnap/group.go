package domsnap

import "fmt"

// groupAndSplit buckets elems by their Group field (preserving the
// position-sorted order within each bucket) and splits any bucket over
// GroupCap into deterministic "_partN" suffixed groups so no single
// group overruns an LLM prompt (§3, §4.2).
func groupAndSplit(elems []Element) []LogicalGroup {
	order := []string{}
	buckets := map[string][]Element{}
	for _, e := range elems {
		name := e.Group
		if name == "" {
			name = "default"
		}
		if _, ok := buckets[name]; !ok {
			order = append(order, name)
		}
		buckets[name] = append(buckets[name], e)
	}

	out := make([]LogicalGroup, 0, len(order))
	for _, name := range order {
		members := buckets[name]
		if len(members) <= GroupCap {
			out = append(out, LogicalGroup{Name: name, Elements: members})
			continue
		}
		for part := 0; part*GroupCap < len(members); part++ {
			start := part * GroupCap
			end := start + GroupCap
			if end > len(members) {
				end = len(members)
			}
			out = append(out, LogicalGroup{
				Name:     fmt.Sprintf("%s_part%d", name, part+1),
				Elements: members[start:end],
			})
		}
	}
	return out
}
