// Package sysres inspects and adjusts host resources for a run: process
// scheduling priority and memory usage relative to installed RAM.
package sysres
