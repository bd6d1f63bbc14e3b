package clock

import "go.uber.org/fx"

// Module provides the process-wide wall clock. Tests bypass the graph and
// hand Fixed clocks to services directly.
var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
