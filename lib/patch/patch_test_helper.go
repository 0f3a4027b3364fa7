package patch

import (
	"github.com/brianvoe/gofakeit/v7"
)

// RandomDocument builds a nested document of maps, arrays and scalars.
// Numbers are widened to float64 so the values look exactly like they
// would after a JSON round trip.
func RandomDocument(depth int) map[string]any {
	doc := map[string]any{
		"id":     gofakeit.UUID(),
		"name":   gofakeit.Name(),
		"email":  gofakeit.Email(),
		"count":  float64(gofakeit.Number(0, 1000)),
		"active": gofakeit.Bool(),
	}
	tags := make([]any, gofakeit.Number(0, 4))
	for i := range tags {
		tags[i] = gofakeit.Word()
	}
	doc["tags"] = tags
	if depth > 0 {
		doc["profile"] = RandomDocument(depth - 1)
	}
	return doc
}

// MutateDocument returns a copy with a few fields changed, one removed
// and one added, leaving the original untouched.
func MutateDocument(doc map[string]any) map[string]any {
	mutated := cloneAny(doc).(map[string]any)
	mutated["name"] = gofakeit.Name()
	mutated["count"] = float64(gofakeit.Number(1001, 2000))
	delete(mutated, "email")
	mutated["city"] = gofakeit.City()
	if profile, ok := mutated["profile"].(map[string]any); ok {
		profile["active"] = !profile["active"].(bool)
	}
	return mutated
}
