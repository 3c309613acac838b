// Command swingcoach runs the swing analysis daemon and talks to it.
//
// `swingcoach serve` starts the daemon in the foreground. Every other
// command is a thin HTTP client over the daemon API: upload a clip, browse
// analyzed swings, attach a launch monitor screenshot, or inspect daemon
// health. Commands that print records accept --json for scripting.
package main
