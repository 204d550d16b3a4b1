package version

import "fmt"

// Значения подставляются при сборке:
// go build -ldflags "-X github.com/airrecover/storefront/internal/version.version=v1.0.0"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// GetVersion returns the release tag of the storefront binaries.
func GetVersion() string { return version }

// GetCommit returns the git commit the binary was built from.
func GetCommit() string { return commit }

// GetDate returns the build date.
func GetDate() string { return date }

func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}

// UserAgent возвращает User-Agent исходящих запросов клиента, например
// "airrecover-checkout/v1.0.0". В dev-сборке к версии добавляется коммит.
func UserAgent(component string) string {
	v := version
	if v == "dev" && commit != "unknown" {
		v += "+" + commit
	}
	return fmt.Sprintf("airrecover-%s/%s", component, v)
}
