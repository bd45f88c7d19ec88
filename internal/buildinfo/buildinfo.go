// Package buildinfo carries values stamped at link time.
package buildinfo

// Version is set with -ldflags "-X github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/buildinfo.Version=..."
var Version = "dev"
