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

// Package modalflag is a wrapper for the flag package in the Go standard
// library. It provides sub-mode handling on top of the normal flag
// parsing, where a sub-mode is the first non-flag argument and selects
// which group of flags applies to the rest of the command line.
//
// The soundshell binary uses it like this:
//
//	md := &modalflag.Modes{Output: os.Stdout}
//	md.NewArgs(os.Args[1:])
//	md.AddSubModes("PLAY", "VERSION")
//
//	p, err := md.Parse()
//	switch p {
//	case modalflag.ParseHelp:
//		return
//	case modalflag.ParseError:
//		fmt.Println(err)
//		return
//	}
//
// After a successful parse, Mode() names the selected sub-mode. The
// handler for that mode calls NewMode(), adds the flags it understands
// and calls Parse() again:
//
//	func play(md *modalflag.Modes) error {
//		md.NewMode()
//		vol := md.AddFloat64("volume", 1.0, "playback volume")
//
//		p, err := md.Parse()
//		if err != nil || p != modalflag.ParseContinue {
//			return err
//		}
//
//		...
//	}
//
// Any arguments left over after flag and sub-mode parsing are available
// through RemainingArgs() or GetArg().
//
// Help messages are handled by the package. If the user asks for -help,
// Parse() prints the available flags and sub-modes to the Output field
// and returns ParseHelp.
package modalflag
