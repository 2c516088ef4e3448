// Command compositor builds slideshow videos from a media directory.
//
// It composes a single run synchronously with `compose`, or serves the job
// API and worker with `serve`. `jobs` inspects and feeds the job queue and
// `config` writes or checks the configuration file.
package main
