package scheduler

// Package scheduler decides when to call the remote optimizer and keeps the
// control state correct between calls. Quarter-hour alignment makes a
// finished plan maximally fresh at price-slot boundaries; gap-fill runs
// prevent long idle periods when the configured interval is much shorter
// than 15 minutes. A fast tick re-applies buffered slot values whenever the
// wall-clock slot advances.
