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

package modalflag_test

import (
	"os"
	"testing"

	"github.com/tolband/soundshell/modalflag"
	"github.com/tolband/soundshell/test"
)

func TestNoModesNoFlags(t *testing.T) {
	md := modalflag.Modes{Output: os.Stdout}
	md.NewArgs([]string{})

	p, err := md.Parse()
	test.Equate(t, p, modalflag.ParseContinue)
	test.ExpectedSuccess(t, err)
	test.Equate(t, md.Mode(), "")
	test.Equate(t, md.Path(), "")
}

func TestNoModes(t *testing.T) {
	md := modalflag.Modes{Output: os.Stdout}
	md.NewArgs([]string{"-echo", "beep.wav", "boop.wav"})
	echo := md.AddBool("echo", false, "echo log to stdout")

	test.Equate(t, *echo, false)
	test.Equate(t, md.Parsed(), false)

	p, err := md.Parse()
	test.Equate(t, p, modalflag.ParseContinue)
	test.ExpectedSuccess(t, err)
	test.Equate(t, md.Parsed(), true)
	test.Equate(t, md.Mode(), "")

	test.Equate(t, *echo, true)
	test.Equate(t, len(md.RemainingArgs()), 2)
	test.Equate(t, md.GetArg(0), "beep.wav")
}

func TestModeSelection(t *testing.T) {
	md := modalflag.Modes{Output: os.Stdout}
	md.NewArgs([]string{"version"})
	md.AddSubModes("PLAY", "VERSION")

	p, err := md.Parse()
	test.Equate(t, p, modalflag.ParseContinue)
	test.ExpectedSuccess(t, err)
	test.Equate(t, md.Mode(), "VERSION")
}

func TestDefaultMode(t *testing.T) {
	md := modalflag.Modes{Output: os.Stdout}
	md.NewArgs([]string{"beep.wav"})
	md.AddSubModes("PLAY", "VERSION")

	p, err := md.Parse()
	test.Equate(t, p, modalflag.ParseContinue)
	test.ExpectedSuccess(t, err)
	test.Equate(t, md.Mode(), "PLAY")

	// the filename was not consumed as a sub-mode
	md.NewMode()
	p, err = md.Parse()
	test.Equate(t, p, modalflag.ParseContinue)
	test.ExpectedSuccess(t, err)
	test.Equate(t, md.GetArg(0), "beep.wav")
}

func TestNoHelpAvailable(t *testing.T) {
	tw := &test.CompareWriter{}

	md := modalflag.Modes{Output: tw}
	md.NewArgs([]string{"-help"})

	p, _ := md.Parse()
	test.Equate(t, p, modalflag.ParseHelp)

	if !tw.Compare("No help available\n") {
		t.Error("unexpected help message (wanted 'No help available')")
	}
}

func TestHelpFlags(t *testing.T) {
	tw := &test.CompareWriter{}

	md := modalflag.Modes{Output: tw}
	md.NewArgs([]string{"-help"})
	md.AddBool("echo", true, "echo log to stdout")

	p, _ := md.Parse()
	test.Equate(t, p, modalflag.ParseHelp)

	expectedHelp := "Usage:\n" +
		"  -echo\n" +
		"    	echo log to stdout (default true)\n"

	if !tw.Compare(expectedHelp) {
		t.Error("unexpected help message")
	}
}

func TestHelpFlagsAndModes(t *testing.T) {
	tw := &test.CompareWriter{}

	md := modalflag.Modes{Output: tw}
	md.NewArgs([]string{"-help"})
	md.AddBool("echo", true, "echo log to stdout")
	md.AddSubModes("PLAY", "VERSION")

	p, _ := md.Parse()
	test.Equate(t, p, modalflag.ParseHelp)

	expectedHelp := "Usage:\n" +
		"  -echo\n" +
		"    	echo log to stdout (default true)\n" +
		"\n" +
		"  available sub-modes: PLAY, VERSION\n" +
		"    default: PLAY\n"

	if !tw.Compare(expectedHelp) {
		t.Error("unexpected help message")
	}
}
