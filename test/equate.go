// This file is part of Soundshell.
//
// Soundshell is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Soundshell is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Soundshell.  If not, see <https://www.gnu.org/licenses/>.

package test

import (
	"math"
	"testing"
)

// Equate is used to test equality between one value and another. Both
// values must be of the same type.
//
//	var n int
//	n = someFunction()
//	test.Equate(t, n, 10)
func Equate[T comparable](t *testing.T, value T, expectedValue T) {
	t.Helper()
	if value != expectedValue {
		t.Errorf("equation of type %T failed ('%v' - wanted '%v')", value, value, expectedValue)
	}
}

// DemandEquality is like Equate() except that failure is a testing
// fatality. Useful when the values being tested are used in further tests
// and so must be correct. For example, testing that the lengths of two
// slices are equal before iterating over them in unison.
func DemandEquality[T comparable](t *testing.T, value T, expectedValue T) {
	t.Helper()
	if value != expectedValue {
		t.Fatalf("equality demand of type %T failed ('%v' - wanted '%v')", value, value, expectedValue)
	}
}

// EquateFloat is used to test near-equality of floating point values.
// Values are considered equal if they are within tolerance of one another.
func EquateFloat(t *testing.T, value float64, expectedValue float64, tolerance float64) {
	t.Helper()
	if math.Abs(value-expectedValue) > tolerance {
		t.Errorf("float equation failed (%f - wanted %f ±%f)", value, expectedValue, tolerance)
	}
}
