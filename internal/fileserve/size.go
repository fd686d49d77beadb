package fileserve

import "fmt"

var sizeUnits = [...]string{"B", "KB", "MB", "GB"}

// FormatSize renders a byte count for display using base-1024 scaling with
// one decimal place, e.g. 1536 -> "1.5 KB". Zero (and, defensively, any
// negative stat result) is the literal "0 B". Counts beyond the GB range are
// clamped and still expressed in GB.
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	v := float64(n)
	idx := 0
	for v >= 1024 && idx < len(sizeUnits)-1 {
		v /= 1024
		idx++
	}
	return fmt.Sprintf("%.1f %s", v, sizeUnits[idx])
}
