package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/atframework/genconf/internal/config"
	"github.com/atframework/genconf/internal/engine"
	"github.com/atframework/genconf/internal/env"
	"github.com/atframework/genconf/internal/logging"
	"github.com/atframework/genconf/internal/render"
)

// runGenerate loads the configuration and runs one generation pass.
func runGenerate(cmd *cobra.Command, opts *Options) error {
	logger := LoggerFromContext(cmd.Context())

	console := logging.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
	eng, err := buildEngine(cmd, opts, console)
	if err != nil {
		return err
	}
	rep, err := eng.Generate(cmd.Context())
	if err != nil {
		return err
	}

	if opts.ReportPath != "" {
		if err := rep.WriteFile(opts.ReportPath); err != nil {
			return err
		}
		logger.Debug("report written", "path", opts.ReportPath)
	}

	logger.Info("generation finished", "outputs", len(rep.Outputs), "problems", rep.Problems())
	console.Done()
	return nil
}

// workspace is everything a command needs from flags, environment and disk.
type workspace struct {
	layout     engine.Layout
	configPath string
	store      *config.Store
	envMap     env.Vars
	vars       map[string]any
}

// loadWorkspace resolves options from flags and environment and loads the configuration,
// env files and var files.
func loadWorkspace(cmd *cobra.Command, opts *Options) (*workspace, error) {
	if err := applyEnvDefaults(cmd, opts); err != nil {
		return nil, err
	}

	layout, err := engine.NewLayout(opts.WorkDir, opts.InstallRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve directories: %w", err)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(layout.ScriptDir, defaultConfigName)
	}
	store, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	fileEnv, err := env.LoadEnvFiles(layout.ScriptDir, opts.EnvFiles)
	if err != nil {
		return nil, err
	}

	vars, err := env.LoadVarFiles(layout.ScriptDir, opts.VarFiles)
	if err != nil {
		return nil, err
	}

	return &workspace{
		layout:     layout,
		configPath: configPath,
		store:      store,
		envMap:     env.Merge(env.FromOS(), fileEnv),
		vars:       vars,
	}, nil
}

// buildEngine loads the workspace and constructs the engine over it.
func buildEngine(cmd *cobra.Command, opts *Options, console *logging.Console) (*engine.Engine, error) {
	logger := LoggerFromContext(cmd.Context())

	ws, err := loadWorkspace(cmd, opts)
	if err != nil {
		return nil, err
	}

	engineOpts := engine.Options{
		Layout:          ws.layout,
		IDOffset:        opts.IDOffset,
		DisableSHM:      opts.DisableSHM,
		DisableUnixSock: opts.DisableUnixSock,
		Overrides:       opts.Sets,
		Vars:            ws.vars,
		Env:             ws.envMap,
	}
	if opts.numberSet {
		n := opts.Number
		engineOpts.ResetNumber = &n
	}

	logger.Info("configuration loaded",
		"config", ws.configPath,
		"work_dir", ws.layout.ScriptDir,
		"install_root", ws.layout.InstallRoot,
		"id_offset", opts.IDOffset,
	)

	renderer := render.NewTextRenderer(ws.store, ws.envMap, ws.layout.SearchDirs()...)
	return engine.NewEngine(ws.store, renderer, engineOpts, logger, console), nil
}
