// Package logger provides leveled console logging for stash commands.
//
// Lines are rendered by a zerolog ConsoleWriter with colored level labels,
// so structured fields from the vault engine print as key=value pairs after
// the message.
//
// # Verbosity Levels
//
//   - --verbose: info and warning messages
//   - --debug: everything, including engine steps and errors
//
// Without flags, only WarnfAlways output is shown.
//
// # Log Methods
//
//	Logger.Infof()           // --verbose or --debug
//	Logger.Debugf()          // --debug
//	Logger.Step()            // --debug, with structured fields
//	Logger.Warnf()           // --verbose or --debug
//	Logger.WarnfAlways()     // always
//	Logger.Errorf()          // --debug
//	Logger.ErrorfAndReturn() // --debug, returns the error
//
// Commands create a logger in their PersistentPreRun and pass it down to
// workflows and the vault engine. Tests use Nop.
package logger
