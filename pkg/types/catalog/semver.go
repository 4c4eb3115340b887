package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Version is a semantic version compared numerically component by component,
// never as a raw string. "1.10.0" is newer than "1.9.0".
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses a "major.minor.patch" string. Anything that does not
// consist of exactly three non-negative integers is rejected, including
// pre-release and build suffixes.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, errors.Errorf("malformed semantic version: %q", s)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, errors.Wrapf(err, "malformed semantic version: %q", s)
		}
		if n < 0 {
			return Version{}, errors.Errorf("malformed semantic version: %q", s)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// Compare returns -1 if v < o, 0 if v == o, and 1 if v > o.
func (v Version) Compare(o Version) int {
	pairs := [][2]int{
		{v.Major, o.Major},
		{v.Minor, o.Minor},
		{v.Patch, o.Patch},
	}
	for _, p := range pairs {
		if p[0] != p[1] {
			if p[0] > p[1] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// NewerThan reports whether v is strictly greater than o.
func (v Version) NewerThan(o Version) bool {
	return v.Compare(o) > 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
