// Package viz renders buoyancy and overturning profiles in the terminal.
//
// Static output uses asciigraph line charts ([ProfilePlot], [SeriesPlot]);
// the live view ([Model]) is a Bubble Tea program that advances a coupled
// run and redraws the column profiles on a Braille [Canvas].
//
// # Key Bindings
//
//	Space - Pause/Resume
//	+/-   - More/fewer steps per frame
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Quit
package viz
