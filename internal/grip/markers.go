package grip

import "strings"

// MarkerVisibilityString renders one coda's visibility mask as a "u"/"m"
// run per marker, grouped manipulandum / frame / wrist for the status
// display, e.g. "uuuuuuuu mmmu uuummmuu".
func MarkerVisibilityString(mask uint32) string {
	var b strings.Builder
	for mrk := 0; mrk < TotalMarkers; mrk++ {
		if mrk == frameFirstMarker || mrk == wristFirstMarker {
			b.WriteByte(' ')
		}
		if mask&(1<<mrk) != 0 {
			b.WriteByte('u')
		} else {
			b.WriteByte('m')
		}
	}
	return b.String()
}
