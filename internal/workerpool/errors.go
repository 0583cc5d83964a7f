// file: internal/workerpool/errors.go
package workerpool

import "errors"

// ErrDraining is returned by Submit when the pool is mid-Drain and not
// accepting new tasks.
var ErrDraining = errors.New("workerpool: pool is draining")
