package grade

// RankFunc maps a numeric complexity score to a grade.
type RankFunc func(complexity float64) Grade

// Rank maps a cyclomatic complexity score to a grade using the
// conventional bands:
//
//	A  1 - 5    simple block
//	B  6 - 10   well structured
//	C 11 - 20   slightly complex
//	D 21 - 30   more than moderately complex
//	E 31 - 40   too complex
//	F 41+       error-prone
//
// Fractional scores (averages) fall into the band whose upper bound
// they do not exceed, so 5.1 is B. Zero and negative scores are A.
func Rank(complexity float64) Grade {
	switch {
	case complexity <= 5:
		return A
	case complexity <= 10:
		return B
	case complexity <= 20:
		return C
	case complexity <= 30:
		return D
	case complexity <= 40:
		return E
	default:
		return F
	}
}
