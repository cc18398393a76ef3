// Package errors provides coded, actionable errors for the vtree command.
//
// Every error the CLI reports to a user carries a code (e.g. "E101") that
// maps to a short message and a longer explanation. Config file errors also
// carry the file location and the surrounding lines.
//
// # Error Categories
//
//   - config: configuration file and override errors (E100-E199)
//   - cli: flag and argument errors (E200-E299)
//   - bench: benchmark and report upload errors (E300-E399)
//   - server: mirror server errors (E400-E499)
//
// # Usage
//
//	err := errors.New("E102").
//	    WithLocation("vtree.yaml", 4, 9).
//	    WithSuggestion("Durations are strings such as \"30s\"")
//
//	errors.PrintError(err)
//	// ERROR E102: Invalid configuration value
//	//
//	//   vtree.yaml:4:9
//	//
//	//     3 │ server:
//	//   → 4 │   readTimeout: 30
//	//       │         ^
//	//
//	//   Hint: Durations are strings such as "30s"
package errors
