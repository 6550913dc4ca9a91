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

// Package curated is a helper package for the plain Go language error type.
// Curated errors implement the error interface.
//
// Curated errors are created with the Errorf() function. It takes a
// formatting pattern and placeholder values, like Errorf() in the fmt
// package, and returns an error. The pattern is not lost in the formatting
// however and can later be used to identify the error.
//
// The Is() function checks whether an error was created by Errorf() with a
// specific pattern. For example:
//
//	e := curated.Errorf("device: %s: open failed", name)
//
//	if curated.Is(e, "device: %s: open failed") {
//		fmt.Println("true")
//	}
//
// The Has() function is similar but checks whether the pattern occurs
// anywhere in the error chain. Error chains are built by passing a curated
// error as a placeholder value to a later Errorf() call.
//
// Packages in this project declare the patterns they use as exported string
// constants, so that callers can pattern match without repeating the string.
package curated
