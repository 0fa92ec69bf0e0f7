package shared

import "fmt"

// These will be set at build time with ldflags:
//
//	go build -ldflags "-X github.com/optyshop/schemarecon/cmd/schemarecon/shared.Version=v1.2.0 -X github.com/optyshop/schemarecon/cmd/schemarecon/shared.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "unknown" //nolint:gochecknoglobals
	Commit  = "unknown" //nolint:gochecknoglobals
)

func VersionString() string {
	return fmt.Sprintf("%s+commit.%s", Version, Commit)
}
