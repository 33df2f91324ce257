package finisher

import "github.com/glintlab/screenshot-finisher/core"

// Inner exposes the underlying core.Processor for advanced use (e.g., direct
// registry access in tests).  Prefer the high-level API for normal usage.
func (f *Finisher) Inner() *core.Processor { return f.inner }
