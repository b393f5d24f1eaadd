// Package vault implements the stash engine: a directory of individually
// encrypted files whose secrets live in a two-tier secret store.
//
// A vault is either unarchived (loose encrypted files) or archived (one
// encrypted container named "contents"). The state is never stored; it is
// derived from the presence of the container at the start of every
// operation.
//
// Every state-changing operation writes the secret before the file it
// protects and undoes completed steps when a later one fails, so a failure
// leaves at worst a dangling store entry, which Scan reports and Prune
// removes.
package vault
