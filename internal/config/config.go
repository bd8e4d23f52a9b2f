// Package config binds the command-line flags into a single resolved
// configuration, the way the teacher's cfg package binds its own
// cobra/viper flag set.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved set of options driving a mount.
type Config struct {
	MountPoint string
	DBPath     string

	FuseOptions []string `mapstructure:"o"`

	Foreground  bool   `mapstructure:"foreground"`
	LogPath     string `mapstructure:"log-path"`
	LogFormat   string `mapstructure:"log-format"`
	LogSeverity string `mapstructure:"log-severity"`

	// AttrCacheTTLSecs is how long the kernel may cache inode attributes and
	// directory entries it gets back from a lookup, mirroring the teacher's
	// MetadataCache.TtlSecs knob.
	AttrCacheTTLSecs int `mapstructure:"attr-cache-ttl-secs"`
}

// AttrCacheTTL converts the resolved seconds value to a time.Duration the
// way the teacher converts its own *TtlSecs fields at mount time.
func (c *Config) AttrCacheTTL() time.Duration {
	return time.Duration(c.AttrCacheTTLSecs) * time.Second
}

// BindFlags registers every flag this filesystem accepts on the given flag
// set and binds it to viper, mirroring the teacher's cfg.BindFlags.
func BindFlags(flags *pflag.FlagSet) error {
	flags.StringArrayP("o", "o", nil, "Additional mount options in the form key[=value], may be repeated")
	flags.Bool("foreground", false, "Accepted for compatibility; the process always stays in the foreground")
	flags.String("log-path", "", "Path to the log file; empty means stderr")
	flags.String("log-format", "text", "Log line format: text or json")
	flags.String("log-severity", "INFO", "Minimum log severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF")
	flags.Int("attr-cache-ttl-secs", 60, "How long the kernel may cache inode attributes and directory entries")

	return viper.BindPFlags(flags)
}

// ParseOptions splits a single "-o" argument (e.g. "rw,noatime,uid=501")
// into individual key[=value] mount options and merges them into dst.
func ParseOptions(dst map[string]string, arg string) {
	for _, part := range strings.Split(arg, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if eq := strings.IndexByte(part, '='); eq >= 0 {
			dst[part[:eq]] = part[eq+1:]
		} else {
			dst[part] = ""
		}
	}
}
