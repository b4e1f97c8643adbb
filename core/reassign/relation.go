package reassign

import "github.com/kilianp07/railjobs/core/model"

// CarRelations pairs a car with the relations it can be sent on.
type CarRelations struct {
	Car       model.Car
	Relations []model.Relation
}

// IntersectRelations returns the longest prefix whose relation sets share at
// least one relation, along with the shared set in the order of the first
// element. The element that would empty the intersection is not consumed.
func IntersectRelations(items []CarRelations) ([]model.Car, []model.Relation) {
	if len(items) == 0 {
		return nil, nil
	}
	cars := []model.Car{items[0].Car}
	common := items[0].Relations
	for _, it := range items[1:] {
		next := intersect(common, it.Relations)
		if len(next) == 0 {
			break
		}
		cars = append(cars, it.Car)
		common = next
	}
	return cars, common
}

func intersect(a, b []model.Relation) []model.Relation {
	in := make(map[model.Relation]struct{}, len(b))
	for _, r := range b {
		in[r] = struct{}{}
	}
	var out []model.Relation
	seen := make(map[model.Relation]struct{}, len(a))
	for _, r := range a {
		if _, ok := in[r]; !ok {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
