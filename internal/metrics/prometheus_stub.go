//go:build noprom

package metrics

import "errors"

var errNoProm = errors.New("prometheus exporter not compiled in (built with -tags noprom)")

// enablePrometheus refuses so callers can report that metrics stay off.
func enablePrometheus(string) error { return errNoProm }
