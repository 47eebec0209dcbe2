package dataset

import (
	"sort"

	"github.com/ezoic/tasador/vehicle"
)

// DefaultTopModels is how many model buckets keep their own category.
const DefaultTopModels = 80

// Vocabulary is the set of model buckets seen often enough in training to
// keep their own category. Everything else folds to vehicle.OtherModel.
type Vocabulary struct {
	// Models is sorted alphabetically.
	Models []string
}

// BuildVocabulary keeps the topN most frequent models. Ties are broken by
// name so the result does not depend on input order.
func BuildVocabulary(models []string, topN int) *Vocabulary {
	counts := make(map[string]int)
	for _, m := range models {
		counts[m]++
	}
	ranked := make([]string, 0, len(counts))
	for m := range counts {
		ranked = append(ranked, m)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if topN >= 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	sort.Strings(ranked)
	return &Vocabulary{Models: ranked}
}

// Contains reports whether model has its own category.
func (v *Vocabulary) Contains(model string) bool {
	i := sort.SearchStrings(v.Models, model)
	return i < len(v.Models) && v.Models[i] == model
}

// Fold returns model if it is in the vocabulary and vehicle.OtherModel
// otherwise. A nil vocabulary keeps every model.
func (v *Vocabulary) Fold(model string) string {
	if v == nil || v.Contains(model) {
		return model
	}
	return vehicle.OtherModel
}

// Apply folds the model of every sample in place.
func (v *Vocabulary) Apply(samples []Sample) {
	for i := range samples {
		samples[i].Record.ModeloAgrupado = v.Fold(samples[i].Record.ModeloAgrupado)
	}
}

// Len returns the number of models in the vocabulary.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Models)
}
