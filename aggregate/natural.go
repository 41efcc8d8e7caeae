// api/aggregate/natural.go
package aggregate

// NaturalLess compares slide identifiers with digit runs ordered numerically,
// so "9" < "10" and "04" < "04a" < "04b". Non-digit segments compare byte-wise.
func NaturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			ai, an := digitRun(a, i)
			bj, bn := digitRun(b, j)
			if an != bn {
				return an < bn
			}
			// Equal numeric value: fewer leading zeros sorts first, matching
			// string order of the raw runs.
			if a[i:ai] != b[j:bj] {
				return a[i:ai] < b[j:bj]
			}
			i, j = ai, bj
			continue
		}
		if a[i] != b[j] {
			return a[i] < b[j]
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// digitRun returns the end index of the digit run starting at i and its
// numeric value.
func digitRun(s string, i int) (int, uint64) {
	var n uint64
	for i < len(s) && isDigit(s[i]) {
		n = n*10 + uint64(s[i]-'0')
		i++
	}
	return i, n
}
