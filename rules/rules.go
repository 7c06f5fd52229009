//go:build ruleguard

// Package gorules holds project lint rules run by golangci-lint through
// ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo flags the Add/Done goroutine pattern that wg.Go replaces.
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { ... })").
		Suggest("$wg.Go(func() { $body })")

	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { ... })")
}

// DecibelToLinear flags hand-written amplitude conversions outside dsp.
func DecibelToLinear(m dsl.Matcher) {
	m.Match(`math.Pow(10, $db/20)`, `math.Pow(10.0, $db/20.0)`, `math.Pow(10, $db/20.0)`).
		Where(!m.File().PkgPath.Matches(`internal/dsp$`)).
		Report("use dsp.DBToLinear($db)").
		Suggest("dsp.DBToLinear($db)")
}

// PanicInAudioPath flags panics in packages that run on the device thread.
func PanicInAudioPath(m dsl.Matcher) {
	m.Match(`panic($_)`).
		Where(m.File().PkgPath.Matches(`internal/(engine|equalizer|reverb|dsp|host)$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report("the audio path must not panic; return an error or pass the buffer through")
}

// TestContext flags background contexts in tests.
func TestContext(m dsl.Matcher) {
	m.Match(`context.Background()`, `context.TODO()`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("use t.Context() so the context is cancelled when the test ends")
}

// BenchmarkLoop flags b.N loops that b.Loop replaces.
func BenchmarkLoop(m dsl.Matcher) {
	m.Match(`for $i := 0; $i < $b.N; $i++ { $*body }`, `for range $b.N { $*body }`).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... }")
}

// ErrorsPackage flags the standard errors constructors in internal code,
// which must go through the enhanced error builder.
func ErrorsPackage(m dsl.Matcher) {
	m.Import("errors")
	m.Match(`errors.New($msg)`).
		Where(m["msg"].Type.Is("string") &&
			m.File().PkgPath.Matches(`internal/(engine|equalizer|reverb|host|remote|render|audiofile)$`) &&
			m.File().Imports("errors")).
		Report("build errors with internal/errors so they carry a component and category")
}
