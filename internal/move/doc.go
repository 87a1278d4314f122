// Package move defines the Move capability implemented by collaborators and
// the Registry that draws moves by weight, runs the attempt/accept/reject
// protocol and keeps per-move acceptance statistics.
package move
