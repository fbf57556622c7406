package version

// Version is the dirsync version. It is overridden at build time with
// -ldflags "-X github.com/hashicorp-forge/dirsync/internal/version.Version=...".
var Version = "0.1.0-dev"
