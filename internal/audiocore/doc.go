// Package audiocore is the host-side processing framework the effects
// engine plugs into. Audio arrives as AudioData blocks of raw PCM bytes
// with an AudioFormat, and flows through an ordered ProcessorChain of
// AudioProcessor implementations.
//
// # Concurrency
//
// ProcessorChain methods are safe for concurrent use: AddProcessor and
// RemoveProcessor take a write lock, Process a read lock. Individual
// processors document their own guarantees; the effects processor
// serializes Process calls because the engine it wraps has a single audio
// side.
//
// # Encodings
//
// Processors recognise "pcm_s16le" and "pcm_f32le" interleaved PCM.
package audiocore
