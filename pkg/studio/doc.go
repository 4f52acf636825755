// ABOUTME: Studio engine package
// ABOUTME: Streams synthesized speech and drives playback, editing and export
// Package studio ties the audio pipeline together.
//
// An Engine receives chunks from a provider stream, decodes and fades them,
// hands them to the look-ahead scheduler and plays them on an output graph.
// The same engine plays fully loaded recordings with seek support and
// exports or edits audio on demand.
//
//	eng := studio.New(studio.Options{Provider: provider.NewTone()})
//	defer eng.Close()
//	if err := eng.Generate(ctx, provider.Request{Text: "Hello."}); err != nil {
//		return err
//	}
//	blob, err := eng.Export(ctx)
//
// State changes are reported to an Observer as Snapshots. Observers run with
// the engine lock held and must not call back into the engine.
package studio
