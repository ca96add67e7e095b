package tracker

// registeredTracker registers a Tracker with a number of Event Kinds so
// that the Tracker only tracks Events of the registered Kinds.
// registeredTracker itself is a Tracker.
//
// This may be useful if some Tracker should only see part of the data
// of an experiment. For example, a Curve registered with Evaluation
// plots the evaluation returns only, instead of the returns of every
// training episode.
type registeredTracker struct {
	Tracker
	kinds map[Kind]bool
}

// Register returns a Tracker which only passes Events of the argument
// Kinds on to t.
//
// Note: the underlying concrete type of the registered Tracker is
// lost when registering a Tracker.
func Register(t Tracker, kinds ...Kind) Tracker {
	r := &registeredTracker{Tracker: t, kinds: make(map[Kind]bool)}
	for _, k := range kinds {
		r.kinds[k] = true
	}
	return r
}

// Track calls Track() on the embedded Tracker if the Event is of a
// registered Kind
func (r *registeredTracker) Track(e Event) {
	if r.kinds[e.Kind] {
		r.Tracker.Track(e)
	}
}
