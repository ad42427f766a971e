package repository

import "strings"

func joinAnd(parts []string) string {
	return strings.Join(parts, " AND ")
}

// dedupIDs 去重并去掉非正数，保持首次出现的顺序
func dedupIDs(ids ...int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
