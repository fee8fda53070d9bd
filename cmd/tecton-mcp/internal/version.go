package internal

// Version is overridden at build time with -ldflags "-X ...internal.Version=...".
var Version = "0.4.0"
