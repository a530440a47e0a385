// Package pipeline runs captured question pages through the six validation
// stages:
//
//	A  fixture integrity   digest matches the recorded digest (fatal)
//	B  input contract      the page parses into a non-empty document (fatal)
//	C  schema              the extracted record is structurally complete (warning)
//	D  content             golden-set match and answer leakage (warning)
//	E  persistence         store then retrieve yields an equal record (fatal)
//	F  rendering safety    fragments carry no script and are balanced (warning)
//
// Stages are strictly ordered and a fatal result marks the remaining stages
// skipped. Execute always returns a result; nothing a stage does escapes as
// an error or panic.
//
// BatchProcessor validates many fixtures concurrently with errgroup, one
// fresh pipeline per fixture.
package pipeline
