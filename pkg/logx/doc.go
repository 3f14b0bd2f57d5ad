// Package logx configures cronkeeper's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Parse-time warn paths rate limited (logx.Sampler)
//
// Components receive a Logger by value; the zero value is a safe no-op, so
// library code never has to nil-check its logger.
package logx
