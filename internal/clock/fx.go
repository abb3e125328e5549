package clock

import "go.uber.org/fx"

func newClock() Clock { return SystemClock{} }

// Module provides the wall clock; tests substitute Fixed directly.
var Module = fx.Module("clock",
	fx.Provide(newClock),
)
