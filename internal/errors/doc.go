// Package errors provides coded, actionable errors for the paramstate
// command and server.
//
// Every error carries a code from the registry (e.g. "E201") that maps to a
// category, a short message and a longer explanation. Callers add the
// specifics: the file and position for configuration errors, a hint on how
// to fix it, and the underlying error.
//
// # Codes
//
//   - E2xx: configuration (paramstate.json, environment)
//   - E3xx: storage backends (sqlite, s3, nats)
//   - E4xx: migrations
//   - E5xx: server and live sessions
//   - E6xx: command line usage
//
// # Usage
//
//	err := errors.New("E201").
//	    WithLocation("paramstate.json", 7, 15).
//	    WithSuggestion(`Quote the key: "backend": "sqlite"`).
//	    Wrap(jsonErr)
//
//	errors.PrintError(err)
//	// ERROR E201: Invalid paramstate.json
//	//
//	//   paramstate.json:7:15
//	//
//	//        5 │   "storage": {
//	//        6 │     "backend": "sqlite",
//	//   →    7 │     path: "state.db"
//	//          │               ^
//	//
//	//   Hint: Quote the key: "backend": "sqlite"
package errors
