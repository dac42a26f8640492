package buildinfo

// Version is set at build-time via -ldflags, e.g.
//
//	-X hooktrap/internal/buildinfo.Version=v1.2.3
//
// Defaults to "dev" for local builds.
var Version = "dev"
