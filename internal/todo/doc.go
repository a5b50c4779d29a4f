// Package todo stores the user's local tasks in MongoDB, alongside but
// independent of their Google Tasks. Every operation is scoped to one user.
//
// Unlike the Google Tasks toggle, which has to read and write back the full
// task, the local toggle flips the done flag in a single atomic update.
package todo
