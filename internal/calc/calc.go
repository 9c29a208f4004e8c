// Package calc provides the numeric utilities served by the lab: addition,
// Fibonacci numbers, and the parsers that turn query parameters into
// operands.
package calc

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/jpalmerr/procedurelab/internal/apperr"
)

// Messages returned to clients for malformed input.
const (
	MsgInvalidNumbers = "invalid numbers"
	MsgInvalidInteger = "invalid integer"
	MsgNegativeIndex  = "n must be >= 0"
)

// Add returns a + b.
func Add(a, b float64) float64 {
	return a + b
}

// Fib returns the n-th Fibonacci number with Fib(0) == 0 and Fib(1) == 1.
//
// The result is exact for any n. A negative n yields an
// [apperr.InvalidArgument] error.
func Fib(n int) (*big.Int, error) {
	if n < 0 {
		return nil, apperr.New(apperr.InvalidArgument, MsgNegativeIndex)
	}

	a, b := big.NewInt(0), big.NewInt(1)
	for range n {
		a.Add(a, b)
		a, b = b, a
	}
	return a, nil
}

// ParseFloat parses s as a finite float64. Surrounding whitespace is
// ignored. NaN, infinities and values outside the float64 range are rejected
// because they cannot be represented in a JSON response.
func ParseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperr.New(apperr.InvalidArgument, MsgInvalidNumbers)
	}
	return f, nil
}

// ParseInt parses s as a base-10 integer with an optional sign. Surrounding
// whitespace is ignored.
func ParseInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, apperr.New(apperr.InvalidArgument, MsgInvalidInteger)
	}
	return n, nil
}
