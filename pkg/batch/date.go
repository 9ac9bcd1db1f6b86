// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package batch

import (
	"fmt"
	"time"
)

const microsPerDay = int64(24 * 60 * 60 * 1000000)

// DaysFromCivil converts a (year, month, day) triple to a signed day count
// from 1970-01-01, using Go's time package (which normalizes out-of-range
// month/day fields the same way the reference's manual civil_from_days /
// days_from_civil routines do).
func DaysFromCivil(y, m, d int) int32 {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return int32(t.Unix() / 86400)
}

// CivilFromDays converts a signed day count back to (year, month, day).
func CivilFromDays(days int32) (y, m, d int) {
	t := time.Unix(int64(days)*86400, 0).UTC()
	return t.Year(), int(t.Month()), t.Day()
}

// MicrosFromCivil converts (y, m, d, h, mi, s, us) to a signed microsecond
// count from the epoch.
func MicrosFromCivil(y, mo, d, h, mi, s, us int) int64 {
	t := time.Date(y, time.Month(mo), d, h, mi, s, 0, time.UTC)
	return t.Unix()*1000000 + int64(us)
}

// CivilFromMicros converts a signed microsecond count back to its civil
// fields.
func CivilFromMicros(us int64) (y, mo, d, h, mi, s, micro int) {
	sec := us / 1000000
	micro = int(us % 1000000)
	if micro < 0 {
		micro += 1000000
		sec--
	}
	t := time.Unix(sec, 0).UTC()
	return t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), micro
}

// FormatDate renders a day count in the canonical YYYY-MM-DD form.
func FormatDate(days int32) string {
	y, m, d := CivilFromDays(days)
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

// FormatTimestamp renders a microsecond count in the canonical
// YYYY-MM-DDTHH:MM:SS[.ffffff]Z form, with fractional seconds present only
// when non-zero and trailing zeros trimmed.
func FormatTimestamp(us int64) string {
	y, mo, d, h, mi, s, micro := CivilFromMicros(us)
	base := fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", y, mo, d, h, mi, s)
	if micro == 0 {
		return base + "Z"
	}
	frac := fmt.Sprintf("%06d", micro)
	for len(frac) > 0 && frac[len(frac)-1] == '0' {
		frac = frac[:len(frac)-1]
	}
	return base + "." + frac + "Z"
}

// ParseDate parses the canonical YYYY-MM-DD form.
func ParseDate(s string) (int32, bool) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return 0, false
	}
	y, ok1 := atoiStrict(s[0:4])
	m, ok2 := atoiStrict(s[5:7])
	d, ok3 := atoiStrict(s[8:10])
	if !ok1 || !ok2 || !ok3 || m < 1 || m > 12 || d < 1 || d > 31 {
		return 0, false
	}
	return DaysFromCivil(y, m, d), true
}

// ParseTimestamp parses YYYY-MM-DD[T| ]HH:MM:SS[.ffffff][Z|±HH[:MM]].
func ParseTimestamp(s string) (int64, bool) {
	if len(s) < 19 {
		return 0, false
	}
	if s[4] != '-' || s[7] != '-' || (s[10] != 'T' && s[10] != ' ') || s[13] != ':' || s[16] != ':' {
		return 0, false
	}
	y, ok1 := atoiStrict(s[0:4])
	mo, ok2 := atoiStrict(s[5:7])
	d, ok3 := atoiStrict(s[8:10])
	h, ok4 := atoiStrict(s[11:13])
	mi, ok5 := atoiStrict(s[14:16])
	sec, ok6 := atoiStrict(s[17:19])
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return 0, false
	}
	rest := s[19:]
	micro := 0
	offsetSeconds := 0

	if len(rest) > 0 && rest[0] == '.' {
		j := 1
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			j++
		}
		fracDigits := rest[1:j]
		micro = padTruncateMicros(fracDigits)
		rest = rest[j:]
	}

	if len(rest) > 0 {
		switch rest[0] {
		case 'Z':
			rest = rest[1:]
		case '+', '-':
			sign := 1
			if rest[0] == '-' {
				sign = -1
			}
			rest = rest[1:]
			if len(rest) < 2 {
				return 0, false
			}
			oh, okh := atoiStrict(rest[0:2])
			if !okh {
				return 0, false
			}
			om := 0
			if len(rest) >= 5 && rest[2] == ':' {
				var okm bool
				om, okm = atoiStrict(rest[3:5])
				if !okm {
					return 0, false
				}
				rest = rest[5:]
			} else {
				rest = rest[2:]
			}
			offsetSeconds = sign * (oh*3600 + om*60)
		default:
			return 0, false
		}
	}
	if rest != "" {
		return 0, false
	}

	us := MicrosFromCivil(y, mo, d, h, mi, sec, micro)
	us -= int64(offsetSeconds) * 1000000
	return us, true
}

func padTruncateMicros(digits string) int {
	if len(digits) == 0 {
		return 0
	}
	if len(digits) > 6 {
		digits = digits[:6]
	}
	for len(digits) < 6 {
		digits += "0"
	}
	v, _ := atoiStrict(digits)
	return v
}

func atoiStrict(s string) (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
