package queue

import "fmt"

type testItem struct {
	id    string
	group string
}

func (t testItem) ItemID() string   { return t.id }
func (t testItem) GroupKey() string { return t.group }

func items(ids ...string) []testItem {
	out := make([]testItem, len(ids))
	for i, id := range ids {
		out[i] = testItem{id: id, group: "g"}
	}
	return out
}

func groupedItems(groups, perGroup int) []testItem {
	var out []testItem
	for g := 0; g < groups; g++ {
		for i := 0; i < perGroup; i++ {
			out = append(out, testItem{
				id:    fmt.Sprintf("g%d-%d", g, i),
				group: fmt.Sprintf("g%d", g),
			})
		}
	}
	return out
}

func ids[T Drillable](list []T) []string {
	out := make([]string, len(list))
	for i, item := range list {
		out[i] = item.ItemID()
	}
	return out
}
