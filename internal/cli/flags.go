package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addGenerateFlags registers the flags of a generation run.
func addGenerateFlags(fs *pflag.FlagSet, opts *Options) {
	fs.StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file (default: <work-dir>/"+defaultConfigName+")")
	fs.StringVarP(&opts.WorkDir, "work-dir", "w", opts.WorkDir, "Script directory holding helper/ templates; receives the fleet scripts")
	fs.StringVar(&opts.InstallRoot, "install-root", "", "Install root that install_prefix values are relative to (default: <work-dir>/../..)")
	fs.StringArrayVarP(&opts.Sets, "set", "s", nil, "Override a configuration value, SECTION.KEY=VALUE (repeatable)")
	fs.IntVarP(&opts.Number, "number", "n", 0, "Set the instance count of every service")
	fs.IntVarP(&opts.IDOffset, "id-offset", "i", 0, "First instance index of every service")
	fs.BoolVar(&opts.DisableSHM, "disable-shm", false, "Disable shared memory listen addresses")
	fs.BoolVar(&opts.DisableUnixSock, "disable-unix-sock", false, "Disable unix socket listen addresses")
	fs.StringVarP(&opts.EnvPrefix, "env-prefix", "e", opts.EnvPrefix, "Prefix of environment variables that supply defaults for unset flags")
	fs.StringArrayVar(&opts.EnvFiles, "env-file", nil, "Dotenv file exposed to templates through envOr, relative to the work directory (repeatable)")
	fs.StringArrayVar(&opts.VarFiles, "var-file", nil, "YAML, JSON/JSONC or key=value file exposed to templates as .vars, relative to the work directory (repeatable)")
	fs.StringVar(&opts.ReportPath, "report", "", "Write a YAML report of generated files to this path")
}

// flagChanged reports whether name was set on the command line.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}
