package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	envparse "github.com/caarlos0/env/v11"
)

// generateEnv defines generation defaults sourced from <prefix>* env vars. The prefix
// is AUTOBUILD_ unless --env-prefix says otherwise.
type generateEnv struct {
	// ConfigPath is the configuration file from <prefix>CONFIG.
	ConfigPath string `env:"CONFIG"`
	// WorkDir is the script directory from <prefix>WORK_DIR.
	WorkDir string `env:"WORK_DIR"`
	// InstallRoot is the install root from <prefix>INSTALL_ROOT.
	InstallRoot string `env:"INSTALL_ROOT"`
	// Sets is a ;-separated override list from <prefix>SET.
	Sets []string `env:"SET" envSeparator:";"`
	// Number is the fleet-wide instance count from <prefix>NUMBER.
	Number int `env:"NUMBER"`
	// IDOffset is the first instance index from <prefix>ID_OFFSET.
	IDOffset int `env:"ID_OFFSET"`
	// DisableSHM drops shm listen addresses from <prefix>DISABLE_SHM.
	DisableSHM bool `env:"DISABLE_SHM"`
	// DisableUnixSock drops unix socket listen addresses from <prefix>DISABLE_UNIX_SOCK.
	DisableUnixSock bool `env:"DISABLE_UNIX_SOCK"`
	// ReportPath is the report destination from <prefix>REPORT.
	ReportPath string `env:"REPORT"`
}

// parseEnv fills target from env vars named prefix+tag via caarlos0/env.
func parseEnv(target any, prefix string) error {
	return envparse.ParseWithOptions(target, envparse.Options{Prefix: prefix})
}

// envPresent reports whether a non-empty env var exists.
func envPresent(key string) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	return strings.TrimSpace(val) != ""
}

// applyEnvDefaults fills every option whose flag was not given on the command line from
// the prefixed environment.
func applyEnvDefaults(cmd *cobra.Command, opts *Options) error {
	var e generateEnv
	if err := parseEnv(&e, opts.EnvPrefix); err != nil {
		return fmt.Errorf("parse %s* environment: %w", opts.EnvPrefix, err)
	}
	key := func(name string) string { return opts.EnvPrefix + name }

	if !flagChanged(cmd, "config") && e.ConfigPath != "" {
		opts.ConfigPath = e.ConfigPath
	}
	if !flagChanged(cmd, "work-dir") && e.WorkDir != "" {
		opts.WorkDir = e.WorkDir
	}
	if !flagChanged(cmd, "install-root") && e.InstallRoot != "" {
		opts.InstallRoot = e.InstallRoot
	}
	if !flagChanged(cmd, "set") && len(e.Sets) > 0 {
		for _, s := range e.Sets {
			if s = strings.TrimSpace(s); s != "" {
				opts.Sets = append(opts.Sets, s)
			}
		}
	}
	if flagChanged(cmd, "number") {
		opts.numberSet = true
	} else if envPresent(key("NUMBER")) {
		opts.Number = e.Number
		opts.numberSet = true
	}
	if !flagChanged(cmd, "id-offset") && envPresent(key("ID_OFFSET")) {
		opts.IDOffset = e.IDOffset
	}
	if !flagChanged(cmd, "disable-shm") && envPresent(key("DISABLE_SHM")) {
		opts.DisableSHM = e.DisableSHM
	}
	if !flagChanged(cmd, "disable-unix-sock") && envPresent(key("DISABLE_UNIX_SOCK")) {
		opts.DisableUnixSock = e.DisableUnixSock
	}
	if !flagChanged(cmd, "report") && e.ReportPath != "" {
		opts.ReportPath = e.ReportPath
	}
	return nil
}
