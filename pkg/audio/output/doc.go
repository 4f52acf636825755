// ABOUTME: Audio output package: the hardware audio graph and its backends
// ABOUTME: Provides Graph, the sample clock, plus oto, beep speaker and null devices
// Package output provides the single audio graph used for playback.
//
// A Graph mixes scheduled sources and counts rendered frames; that count is
// the hardware clock the playback scheduler plans against. A Device pulls
// frames from the graph in real time: Oto and Speaker play them, Null drops
// them. Tests drive the clock by hand with Graph.Advance.
//
// Example:
//
//	g := output.NewGraph(48000, 2)
//	dev := output.NewOto()
//	err := dev.Start(g)
//	src := g.Schedule(buf, g.Now()+0.1)
//	src.Stop()
package output
