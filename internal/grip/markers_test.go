package grip

import "testing"

func TestMarkerVisibilityString(t *testing.T) {
	cases := []struct {
		mask uint32
		want string
	}{
		{0x00000000, "mmmmmmmm mmmm mmmmmmmm"},
		{0x000FFFFF, "uuuuuuuu uuuu uuuuuuuu"},
		{0x000000FF, "uuuuuuuu mmmm mmmmmmmm"},
		{0x00000F00, "mmmmmmmm uuuu mmmmmmmm"},
		{0x00005000, "mmmmmmmm mmmm umummmmm"},
	}
	for _, c := range cases {
		if got := MarkerVisibilityString(c.mask); got != c.want {
			t.Errorf("MarkerVisibilityString(0x%08X) = %q, want %q", c.mask, got, c.want)
		}
	}
}
