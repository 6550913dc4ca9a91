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

// Package test contains helper functions to remove common boilerplate to
// make testing easier.
//
// The ExpectedSuccess and ExpectedFailure functions test for success and
// failure under generic conditions; bool and error types are supported. The
// nil type is considered a success because of how the error type usually
// works (nil indicating no error).
//
// The Equate() function compares like-typed values for equality. The
// EquateFloat() function compares floating point values within a tolerance,
// which is the normal way of comparing the output of sample processing
// functions.
//
// The CompareWriter type implements the io.Writer interface and should be
// used to capture output for comparison with predefined strings.
package test
