// Package pool distributes video processing jobs across a fleet of
// workers sharing one pool channel.
//
// Each worker runs a Controller subscribed to the pool channel. Job
// messages addressed to the worker's job type start or stop jobs
// through the JobController interface; a periodic heartbeat advertises
// the worker's identity and remaining capacity so a scheduler can place
// new jobs.
package pool
