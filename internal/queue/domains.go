package queue

// DefaultExerciseBias is how often the test-exercise queue honors its
// preference for groups holding a recently missed question.
const DefaultExerciseBias = 0.7

// NoBias turns the incorrect-item preference off where a zero Bias would
// select a domain default.
const NoBias = -1.0

// NewVocabulary returns the cycling vocabulary controller.
func NewVocabulary[T Drillable](opts Options) *Controller[T] {
	return newCycling[T]("vocabulary", opts)
}

// NewPerfectTense returns the cycling perfect tense controller.
func NewPerfectTense[T Drillable](opts Options) *Controller[T] {
	return newCycling[T]("perfect-tense", opts)
}

// NewImperfectum returns the cycling imperfectum controller.
func NewImperfectum[T Drillable](opts Options) *Controller[T] {
	return newCycling[T]("imperfectum", opts)
}

// NewConjunctions returns the cycling conjunctions controller.
func NewConjunctions[T Drillable](opts Options) *Controller[T] {
	return newCycling[T]("conjunctions", opts)
}

func newCycling[T Drillable](name string, opts Options) *Controller[T] {
	if opts.Name == "" {
		opts.Name = name
	}
	opts.Cycling = true
	opts.Grouped = false
	return New[T](opts)
}

// NewTestExercise returns the bounded controller for expanded exercise
// questions, grouped by exercise type.
func NewTestExercise[T Drillable](opts Options) *Controller[T] {
	if opts.Name == "" {
		opts.Name = "test-exercise"
	}
	opts.Cycling = false
	opts.Grouped = true
	if opts.Bias == 0 {
		opts.Bias = DefaultExerciseBias
	}
	return New[T](opts)
}

// NewFinalTest returns the bounded final test controller. category maps an
// item to the category its progress counts toward; nil uses GroupKey.
func NewFinalTest[T Drillable](category func(T) string, opts Options) *FinalTest[T] {
	if opts.Name == "" {
		opts.Name = "final-test"
	}
	opts.Cycling = false
	opts.Grouped = true
	if opts.Bias <= 0 {
		opts.Bias = 1
	}
	return newFinalTest(category, opts)
}
