package sweep

// Version is the release of the library and the sweep command.
// Release builds override it with -ldflags "-X github.com/aretw0/sweep.Version=...".
var Version = "0.1.0-dev"
